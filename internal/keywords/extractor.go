// Package keywords extracts the most representative terms of a short text
// with a YAKE-style unsupervised statistical score.
package keywords

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultMaxNGram = 3
	DefaultDedupLim = 0.9
)

// Extractor scores candidate n-grams; lower scores are more relevant.
type Extractor struct {
	MaxNGram int
	DedupLim float64
}

// New returns an Extractor with the YAKE defaults.
func New() *Extractor {
	return &Extractor{MaxNGram: DefaultMaxNGram, DedupLim: DefaultDedupLim}
}

// Extract returns at most count keywords ordered by relevance. The result is
// empty when the text has no extractable terms.
func (e *Extractor) Extract(text, lang string, count int) []string {
	if count < 1 || strings.TrimSpace(text) == "" {
		return nil
	}
	code := baseLanguage(lang)
	doc := analyze(norm.NFC.String(text), cases.Lower(language.Make(code)), stopwordsFor(code))
	if len(doc.terms) == 0 {
		return nil
	}

	doc.scoreTerms()
	cands := doc.candidates(e.maxNGram())
	if len(cands) == 0 {
		return nil
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score < cands[j].score
		}
		if cands[i].firstPos != cands[j].firstPos {
			return cands[i].firstPos < cands[j].firstPos
		}
		return cands[i].key < cands[j].key
	})

	return e.selectTop(cands, count)
}

func (e *Extractor) maxNGram() int {
	if e.MaxNGram < 1 {
		return DefaultMaxNGram
	}
	return e.MaxNGram
}

// selectTop drops near-duplicates first and only backfills with them when too
// few distinct candidates remain.
func (e *Extractor) selectTop(cands []*candidate, count int) []string {
	lim := e.DedupLim
	if lim <= 0 {
		lim = DefaultDedupLim
	}

	var chosen, skipped []*candidate
	for _, c := range cands {
		if len(chosen) == count {
			break
		}
		dup := false
		for _, s := range chosen {
			if similarity(c.key, s.key) > lim {
				dup = true
				break
			}
		}
		if dup {
			skipped = append(skipped, c)
			continue
		}
		chosen = append(chosen, c)
	}
	for _, c := range skipped {
		if len(chosen) == count {
			break
		}
		chosen = append(chosen, c)
	}

	out := make([]string, len(chosen))
	for i, c := range chosen {
		out[i] = c.surface
	}
	return out
}

type token struct {
	surface string
	key     string
	pos     int
}

type term struct {
	key       string
	tf        int
	tfUpper   int
	tfAcronym int
	sentences []int
	left      map[string]int
	right     map[string]int
	stopword  bool
	digit     bool
	h         float64
}

type document struct {
	sentences [][][]token // sentence -> chunk -> tokens
	terms     map[string]*term
	cooc      map[[2]string]int
}

type candidate struct {
	key      string
	surface  string
	tokens   []string
	tf       int
	firstPos int
	score    float64
}

func analyze(text string, lower cases.Caser, stop map[string]struct{}) *document {
	doc := &document{terms: make(map[string]*term), cooc: make(map[[2]string]int)}
	pos := 0
	for _, sent := range splitSentences(text) {
		var chunks [][]token
		first := true
		for _, chunk := range splitChunks(sent) {
			var toks []token
			for _, w := range chunk {
				key := lower.String(w)
				toks = append(toks, token{surface: w, key: key, pos: pos})
				pos++
				doc.observe(w, key, len(doc.sentences), first, stop)
				first = false
			}
			if len(toks) > 0 {
				chunks = append(chunks, toks)
			}
		}
		if len(chunks) > 0 {
			doc.sentences = append(doc.sentences, chunks)
		}
	}

	for _, sent := range doc.sentences {
		for _, chunk := range sent {
			for i := 1; i < len(chunk); i++ {
				l, r := chunk[i-1].key, chunk[i].key
				doc.terms[r].left[l]++
				doc.terms[l].right[r]++
				doc.cooc[[2]string{l, r}]++
			}
		}
	}
	return doc
}

func (d *document) observe(surface, key string, sentence int, sentenceStart bool, stop map[string]struct{}) {
	t, ok := d.terms[key]
	if !ok {
		_, isStop := stop[key]
		t = &term{
			key:      key,
			left:     make(map[string]int),
			right:    make(map[string]int),
			stopword: isStop || len([]rune(key)) < 3,
			digit:    isNumeric(surface),
		}
		d.terms[key] = t
	}
	t.tf++
	if n := len(t.sentences); n == 0 || t.sentences[n-1] != sentence {
		t.sentences = append(t.sentences, sentence)
	}
	runes := []rune(surface)
	switch {
	case len(runes) > 1 && isAllUpper(runes):
		t.tfAcronym++
	case !sentenceStart && unicode.IsUpper(runes[0]):
		t.tfUpper++
	}
}

// scoreTerms computes the per-term weight H from casing, position,
// frequency, context relatedness and sentence spread.
func (d *document) scoreTerms() {
	var tfs []float64
	maxTF := 0.0
	for _, t := range d.terms {
		if float64(t.tf) > maxTF {
			maxTF = float64(t.tf)
		}
		if !t.stopword && !t.digit {
			tfs = append(tfs, float64(t.tf))
		}
	}
	sort.Float64s(tfs)
	mean, std := meanStd(tfs)
	nSent := float64(len(d.sentences))

	for _, t := range d.terms {
		tf := float64(t.tf)
		casing := math.Max(float64(t.tfUpper), float64(t.tfAcronym)) / (1 + math.Log(tf))
		position := math.Log(math.Log(3 + median(t.sentences)))
		freq := tf
		if mean+std > 0 {
			freq = tf / (mean + std)
		}
		rel := 1 + (spread(t.left)+spread(t.right))*(tf/maxTF)
		sent := float64(len(t.sentences)) / nSent

		t.h = (position * rel) / (casing + freq/rel + sent/rel)
	}
}

func (d *document) candidates(maxN int) []*candidate {
	index := make(map[string]*candidate)
	var out []*candidate
	for _, sent := range d.sentences {
		for _, chunk := range sent {
			for i := range chunk {
				for n := 1; n <= maxN && i+n <= len(chunk); n++ {
					gram := chunk[i : i+n]
					if !d.validCandidate(gram) {
						continue
					}
					keys := make([]string, n)
					surfaces := make([]string, n)
					for j, tk := range gram {
						keys[j] = tk.key
						surfaces[j] = tk.surface
					}
					key := strings.Join(keys, " ")
					if c, ok := index[key]; ok {
						c.tf++
						continue
					}
					c := &candidate{
						key:      key,
						surface:  strings.Join(surfaces, " "),
						tokens:   keys,
						tf:       1,
						firstPos: gram[0].pos,
					}
					index[key] = c
					out = append(out, c)
				}
			}
		}
	}
	for _, c := range out {
		c.score = d.candidateScore(c)
	}
	return out
}

func (d *document) validCandidate(gram []token) bool {
	for _, tk := range gram {
		if d.terms[tk.key].digit {
			return false
		}
	}
	first, last := d.terms[gram[0].key], d.terms[gram[len(gram)-1].key]
	return !first.stopword && !last.stopword
}

// candidateScore combines term weights; interior stopwords contribute through
// the probability of the bigrams they sit in.
func (d *document) candidateScore(c *candidate) float64 {
	prod, sum := 1.0, 0.0
	for i, key := range c.tokens {
		t := d.terms[key]
		if !t.stopword {
			prod *= t.h
			sum += t.h
			continue
		}
		prev, next := d.terms[c.tokens[i-1]], d.terms[c.tokens[i+1]]
		pBefore := float64(d.cooc[[2]string{prev.key, key}]) / float64(prev.tf)
		pAfter := float64(d.cooc[[2]string{key, next.key}]) / float64(next.tf)
		p := pBefore * pAfter
		prod *= 1 + (1 - p)
		sum -= 1 - p
	}
	return prod / (float64(c.tf) * (1 + sum))
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for _, r := range text {
		switch r {
		case '.', '!', '?', '…', '\n':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

// splitChunks cuts a sentence at punctuation; candidates never cross a chunk.
func splitChunks(sentence string) [][]string {
	var chunks [][]string
	var words []string
	var w strings.Builder
	endWord := func() {
		if w.Len() > 0 {
			words = append(words, strings.Trim(w.String(), "-'’"))
			w.Reset()
		}
	}
	endChunk := func() {
		endWord()
		if len(words) > 0 {
			chunks = append(chunks, words)
			words = nil
		}
	}
	for _, r := range sentence {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			w.WriteRune(r)
		case (r == '-' || r == '\'' || r == '’') && w.Len() > 0:
			w.WriteRune(r)
		case unicode.IsSpace(r):
			endWord()
		default:
			endChunk()
		}
	}
	endChunk()
	return chunks
}

func baseLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	if lang == "" {
		return "en"
	}
	return lang
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

func isAllUpper(runes []rune) bool {
	for _, r := range runes {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func spread(neighbors map[string]int) float64 {
	total := 0
	for _, n := range neighbors {
		total += n
	}
	if total == 0 {
		return 0
	}
	return float64(len(neighbors)) / float64(total)
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}

func median(xs []int) float64 {
	sorted := append([]int(nil), xs...)
	sort.Ints(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}
