package domain

// RetrievalState is threaded through the query pipeline.
type RetrievalState struct {
	Question string     `json:"question"`
	Context  []Document `json:"context"`
	Answer   string     `json:"answer"`
}

type QueryOptions struct {
	TopK           int
	Translate      bool
	Filter         Filter
	DisableLexical bool
}

type Answer struct {
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Translation string   `json:"translation,omitempty"`
	Sources     []string `json:"sources"`
}

func SourcesOf(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Source())
	}
	return out
}
