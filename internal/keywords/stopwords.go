package keywords

import (
	"bufio"
	"embed"
	"strings"
	"sync"
)

//go:embed stopwords/*.txt
var stopwordFS embed.FS

var (
	stopwordMu    sync.Mutex
	stopwordCache = map[string]map[string]struct{}{}
)

// stopwordsFor returns the list for a base language code. Languages without a
// bundled list fall back to English.
func stopwordsFor(lang string) map[string]struct{} {
	stopwordMu.Lock()
	defer stopwordMu.Unlock()

	if set, ok := stopwordCache[lang]; ok {
		return set
	}
	data, err := stopwordFS.ReadFile("stopwords/" + lang + ".txt")
	if err != nil {
		data, _ = stopwordFS.ReadFile("stopwords/en.txt")
	}
	set := make(map[string]struct{})
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" && !strings.HasPrefix(w, "#") {
			set[w] = struct{}{}
		}
	}
	stopwordCache[lang] = set
	return set
}

// Languages lists the base codes with a bundled stopword list.
func Languages() []string {
	entries, _ := stopwordFS.ReadDir("stopwords")
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".txt"))
	}
	return out
}
