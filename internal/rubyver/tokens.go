package rubyver

// Symbolic tokens understood by Expand. Any other token passes through unchanged, which
// permits forward references to rubies the catalog did not otherwise discover.
const (
	TokenDefault      = "default"
	TokenLatest       = "latest"
	TokenLatestStable = "latest-stable"
	TokenAll          = "all"
	TokenSupported    = "supported"
	TokenStable       = "stable"
	TokenSoftFail     = "soft-fail"
)

// Expand resolves the given tokens against the catalog. An empty token list means
// ["default"]. The result is deduplicated in first-seen order with empty entries dropped.
func (catalog *Catalog) Expand(tokens []string) []string {
	if len(tokens) == 0 {
		tokens = []string{TokenDefault}
	}

	var out []string

	seen := map[string]bool{}

	add := func(rubies ...string) {
		for _, ruby := range rubies {
			if ruby == "" || seen[ruby] {
				continue
			}

			seen[ruby] = true
			out = append(out, ruby)
		}
	}

	for _, token := range tokens {
		switch token {
		case TokenDefault, TokenLatest, TokenLatestStable:
			add(catalog.Default)
		case TokenAll:
			add(catalog.All...)
		case TokenSupported, TokenStable:
			add(catalog.Supported...)
		case TokenSoftFail:
			add(catalog.SoftFail...)
		default:
			add(token)
		}
	}

	return out
}
