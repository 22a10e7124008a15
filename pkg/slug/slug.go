package slug

import (
	"regexp"
	"strconv"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Russian transliteration (simplified GOST 7.79 system B), plus a few Latin
// diacritics common in product names.
var translit = strings.NewReplacer(
	"а", "a", "б", "b", "в", "v", "г", "g", "д", "d", "е", "e", "ё", "yo",
	"ж", "zh", "з", "z", "и", "i", "й", "j", "к", "k", "л", "l", "м", "m",
	"н", "n", "о", "o", "п", "p", "р", "r", "с", "s", "т", "t", "у", "u",
	"ф", "f", "х", "h", "ц", "c", "ч", "ch", "ш", "sh", "щ", "shh", "ъ", "",
	"ы", "y", "ь", "", "э", "e", "ю", "yu", "я", "ya",
	"é", "e", "è", "e", "ü", "u", "ö", "o", "ä", "a", "ç", "c", "ñ", "n",
	"&", " and ", "+", " plus ",
)

// Generate turns a product or category name into a URL slug.
//
//	"Смартфоны"        -> "smartfony"
//	"iPhone 15 Pro Max" -> "iphone-15-pro-max"
//	"Tea & Coffee"     -> "tea-and-coffee"
func Generate(name string) string {
	s := translit.Replace(strings.ToLower(strings.TrimSpace(name)))
	return strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
}

// Unique returns base, or base suffixed with -2, -3, ... until taken
// reports false.
func Unique(base string, taken func(string) bool) string {
	candidate := base
	for i := 2; taken(candidate); i++ {
		candidate = base + "-" + strconv.Itoa(i)
	}
	return candidate
}
