// Package analysis provides deterministic text feature extractors for
// discussion transcripts. Everything here is pure: no model calls, no
// state, neutral scores for degenerate input.
package analysis

import (
	"math"
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`\W+`)

// Tokenize lowercases text, splits on non-word runs and drops tokens of
// two characters or fewer.
func Tokenize(text string) []string {
	parts := nonWord.Split(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) > 2 {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// LexicalSimilarity computes cosine similarity over term-frequency
// vectors of the two texts. Identical non-empty texts score 1; any
// empty side scores 0.
func LexicalSimilarity(a, b string) float64 {
	ta, tb := Tokenize(a), Tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	fa := termFrequency(ta)
	fb := termFrequency(tb)

	var dot, magA, magB float64
	for term, wa := range fa {
		if wb, ok := fb[term]; ok {
			dot += wa * wb
		}
		magA += wa * wa
	}
	for _, wb := range fb {
		magB += wb * wb
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func termFrequency(tokens []string) map[string]float64 {
	freq := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	n := float64(len(tokens))
	for t := range freq {
		freq[t] /= n
	}
	return freq
}

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// SplitSentences breaks text on sentence-final punctuation, trimming
// whitespace and dropping empties.
func SplitSentences(text string) []string {
	parts := sentenceEnd.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

var opinionCues = []string{
	"i think", "i believe", "in my view", "in my opinion",
	"i agree", "i disagree", "we should", "it seems",
	"the key point", "importantly", "my position",
}

// ExtractArguments returns the sentences that carry an opinion marker.
func ExtractArguments(text string) []string {
	var args []string
	for _, sentence := range SplitSentences(text) {
		lower := strings.ToLower(sentence)
		for _, cue := range opinionCues {
			if strings.Contains(lower, cue) {
				args = append(args, sentence)
				break
			}
		}
	}
	return args
}

// ArgumentAlignment averages pairwise similarity across the
// cross-product of the two texts' extracted arguments. No arguments on
// either side means no measurable alignment.
func ArgumentAlignment(a, b string) float64 {
	argsA := ExtractArguments(a)
	argsB := ExtractArguments(b)
	if len(argsA) == 0 || len(argsB) == 0 {
		return 0
	}

	var total float64
	for _, sa := range argsA {
		for _, sb := range argsB {
			total += LexicalSimilarity(sa, sb)
		}
	}
	return total / float64(len(argsA)*len(argsB))
}

var conclusionCues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)in summary[,:]?\s*(.+)`),
	regexp.MustCompile(`(?i)to summarize[,:]?\s*(.+)`),
	regexp.MustCompile(`(?i)in conclusion[,:]?\s*(.+)`),
	regexp.MustCompile(`(?i)therefore[,:]?\s*(.+)`),
	regexp.MustCompile(`(?i)overall[,:]?\s*(.+)`),
	regexp.MustCompile(`(?i)ultimately[,:]?\s*(.+)`),
}

// ExtractConclusion finds the text's concluding statement: the first
// conclusion-cue match in priority order, else the last non-empty
// sentence. Empty input yields "".
func ExtractConclusion(text string) string {
	for _, re := range conclusionCues {
		if m := re.FindStringSubmatch(text); m != nil {
			if s := strings.TrimSpace(sentenceEnd.Split(m[1], 2)[0]); s != "" {
				return s
			}
		}
	}
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	return sentences[len(sentences)-1]
}

var depthCues = []string{
	"for example", "specifically", "in other words", "root cause",
	"first", "second", "finally", "furthermore", "in detail",
	"consider", "deeper",
}

var engagementCues = []string{
	"i think", "you mentioned", "let us", "let's", "i agree",
	"i would add", "building on", "regarding", "furthermore",
	"in addition", "however",
}

var connectorCues = []string{
	"therefore", "because", "however", "so", "meanwhile", "besides",
}

// Depth scores a response by cue density and normalized length.
func Depth(text string) float64 {
	lower := strings.ToLower(text)
	cues := 0
	for _, cue := range depthCues {
		if strings.Contains(lower, cue) {
			cues++
		}
	}
	cueScore := math.Min(1, float64(cues)/5)
	lengthScore := math.Min(1, float64(len(text))/500)
	return 0.6*cueScore + 0.4*lengthScore
}

// Clarity rewards moderate sentence length and connective tissue.
func Clarity(text string) float64 {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return 0
	}

	totalLen := 0
	for _, s := range sentences {
		totalLen += len(s)
	}
	avgLen := float64(totalLen) / float64(len(sentences))
	lengthScore := math.Max(0, 1-(avgLen-50)/100)
	lengthScore = math.Min(1, lengthScore)

	lower := strings.ToLower(text)
	connectors := 0
	for _, c := range connectorCues {
		if strings.Contains(lower, c) {
			connectors++
		}
	}
	connectorScore := math.Min(1, float64(connectors)/3)

	return (lengthScore + connectorScore) / 2
}

// Relevance measures how many of the question's tokens show up in the
// response.
func Relevance(question, response string) float64 {
	qTokens := Tokenize(question)
	if len(qTokens) == 0 {
		return 0
	}
	rSet := make(map[string]struct{})
	for _, t := range Tokenize(response) {
		rSet[t] = struct{}{}
	}
	matched := 0
	for _, t := range qTokens {
		if _, ok := rSet[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(qTokens))
}

// EngagementLevel averages per-response turn-taking cue density.
func EngagementLevel(responses []string) float64 {
	if len(responses) == 0 {
		return 0
	}
	var total float64
	for _, r := range responses {
		lower := strings.ToLower(r)
		cues := 0
		for _, cue := range engagementCues {
			if strings.Contains(lower, cue) {
				cues++
			}
		}
		total += math.Min(1, float64(cues)/3)
	}
	return total / float64(len(responses))
}

// TopicDrift is the mean pairwise dissimilarity between consecutive
// responses. Fewer than two responses means no measurable drift.
func TopicDrift(responses []string) float64 {
	if len(responses) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(responses); i++ {
		total += 1 - LexicalSimilarity(responses[i-1], responses[i])
	}
	return total / float64(len(responses)-1)
}

// QualityScore blends length, depth, clarity and relevance per response
// and averages across the set.
func QualityScore(question string, responses []string) float64 {
	if len(responses) == 0 {
		return 0
	}
	var total float64
	for _, r := range responses {
		lengthScore := math.Min(1, float64(len(r))/500)
		total += 0.2*lengthScore +
			0.3*Depth(r) +
			0.2*Clarity(r) +
			0.3*Relevance(question, r)
	}
	return total / float64(len(responses))
}

// DialogueQuality blends relevance, depth, and engagement into one
// score for the whole exchange.
func DialogueQuality(question string, responses []string) float64 {
	if len(responses) == 0 {
		return 0
	}

	var relevance, depth float64
	for _, r := range responses {
		relevance += Relevance(question, r)
		depth += Depth(r)
	}
	relevance /= float64(len(responses))
	depth /= float64(len(responses))
	engagement := EngagementLevel(responses)

	return 0.4*relevance + 0.3*depth + 0.3*engagement
}

var complexityCues = []string{
	"architecture", "performance", "concurrency", "distributed",
	"optimize", "tradeoff", "scalability", "algorithm", "security",
}

// Complexity estimates how demanding a question is from its length,
// technical vocabulary, and the number of distinct asks.
func Complexity(question string) float64 {
	tokens := Tokenize(question)
	if len(tokens) == 0 {
		return 0
	}

	lengthScore := math.Min(1, float64(len(tokens))/60)

	lower := strings.ToLower(question)
	technical := 0
	for _, cue := range complexityCues {
		if strings.Contains(lower, cue) {
			technical++
		}
	}
	technicalScore := math.Min(1, float64(technical)/3)

	asks := strings.Count(question, "?")
	askScore := math.Min(1, float64(asks)/3)

	return 0.4*lengthScore + 0.4*technicalScore + 0.2*askScore
}
