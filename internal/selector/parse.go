package selector

import (
	"bufio"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/FranksOps/orchid/internal/llm"
)

// strategy tries to read a URL list out of a model answer. ok reports
// whether the strategy reached a verdict; later strategies run only when
// earlier ones did not.
type strategy func(answer string) (urls []string, ok bool)

var strategies = []strategy{
	embeddedObject,
	literalJSON,
	urlLines,
}

var selectionObject = regexp.MustCompile(`\{[\s\S]*"selected_urls"[\s\S]*\}`)

type selection struct {
	SelectedURLs *[]string `json:"selected_urls"`
}

// Parse recovers the selected URLs from a free-text model answer. It tries,
// in order: a JSON object with a selected_urls key found anywhere in the
// text; the fence-stripped text as JSON; lines starting with http:// or
// https://. Every URL is normalized and non-http entries are dropped. An
// answer none of these understand yields an empty slice.
func Parse(answer string) []string {
	for _, try := range strategies {
		if urls, ok := try(answer); ok {
			return normalize(urls)
		}
	}
	return []string{}
}

func embeddedObject(answer string) ([]string, bool) {
	m := selectionObject.FindString(answer)
	if m == "" {
		return nil, false
	}
	var sel selection
	if err := json.Unmarshal([]byte(m), &sel); err != nil || sel.SelectedURLs == nil {
		return nil, false
	}
	return *sel.SelectedURLs, true
}

// literalJSON accepts any JSON object. One without selected_urls is a
// well-formed answer that selected nothing.
func literalJSON(answer string) ([]string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(llm.StripCodeFence(answer)), &obj); err != nil {
		return nil, false
	}
	raw, found := obj["selected_urls"]
	if !found {
		return []string{}, true
	}
	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return []string{}, true
	}
	return urls, true
}

func urlLines(answer string) ([]string, bool) {
	var urls []string
	sc := bufio.NewScanner(strings.NewReader(llm.StripCodeFence(answer)))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if isHTTP(line) {
			urls = append(urls, line)
		}
	}
	return urls, len(urls) > 0
}

func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// normalize strips a trailing "/*" and trailing slashes, drops anything
// that is empty or not http(s), and keeps order. A "/*" inside the path is
// left alone.
func normalize(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		u = strings.TrimRight(u, "/")
		u = strings.TrimSuffix(u, "/*")
		u = strings.TrimRight(u, "/")
		if u == "" || !isHTTP(u) {
			continue
		}
		out = append(out, u)
	}
	return out
}
