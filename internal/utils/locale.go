package utils

import "strings"

// DetermineLocale resolves the console locale from an explicit setting and the
// POSIX locale environment (LANGUAGE, then LANG). Values like "es_ES.UTF-8",
// "es-MX" or "es:en" reduce to their base language when supported.
func DetermineLocale(explicit, language, lang string, supported []string, def string) string {
	sup := map[string]struct{}{}
	for _, s := range supported {
		sup[strings.ToLower(s)] = struct{}{}
	}

	pick := func(tag string) (string, bool) {
		if i := strings.IndexAny(tag, ".@"); i >= 0 {
			tag = tag[:i]
		}
		l := strings.ToLower(strings.TrimSpace(tag))
		if l == "" || l == "c" || l == "posix" {
			return "", false
		}
		if _, ok := sup[l]; ok {
			return l, true
		}
		if i := strings.IndexAny(l, "-_"); i > 0 {
			if _, ok := sup[l[:i]]; ok {
				return l[:i], true
			}
		}
		return "", false
	}

	if v, ok := pick(explicit); ok {
		return v
	}
	// LANGUAGE is a colon separated priority list.
	for _, part := range strings.Split(language, ":") {
		if v, ok := pick(part); ok {
			return v
		}
	}
	if v, ok := pick(lang); ok {
		return v
	}
	if v, ok := pick(def); ok {
		return v
	}
	if len(supported) > 0 {
		return strings.ToLower(supported[0])
	}
	return "en"
}
