package targeting

import (
	"regexp"

	"github.com/maypok86/otter"
)

// Compiled patterns are cached process-wide: the same few segment patterns
// are checked on every evaluation. Invalid patterns are cached as nil so
// they fail fast without recompiling.
var regexCache otter.Cache[string, *regexp.Regexp]

func init() {
	cache, err := otter.MustBuilder[string, *regexp.Regexp](512).Build()
	if err != nil {
		panic(err)
	}
	regexCache = cache
}

// matchRegex reports whether value fully matches pattern.
func matchRegex(pattern, value string) bool {
	re, ok := regexCache.Get(pattern)
	if !ok {
		re, _ = regexp.Compile(`\A(?:` + pattern + `)\z`)
		regexCache.Set(pattern, re)
	}
	return re != nil && re.MatchString(value)
}
