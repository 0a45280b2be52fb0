package prompt

import (
	"strings"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

const SystemInstruction = "You are a specialized assistant focusing on Sri Lankan electoral systems and apportionment methods. " +
	"Provide accurate, well-structured answers based solely on the given context."

const answerTemplate = `You are an expert on Sri Lankan electoral systems, focusing on:
1. Various apportionment methods used in Sri Lanka
2. Electoral systems and voting mechanisms
3. Constitutional provisions related to elections
4. District-wise seat allocation methods
5. Proportional representation system

Using ONLY the provided context, answer the following question. If you cannot find enough information in the context, clearly state what specific information is missing rather than making assumptions.

Context:
{context}

Question: {question}

Please provide a clear and structured answer that:
- Directly addresses the question
- Uses specific examples from the context when available
- Explains technical terms related to electoral systems
- Cites relevant constitutional articles or provisions if mentioned in the context

Answer:`

// JoinContext concatenates document contents with blank lines, in order.
func JoinContext(docs []domain.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n\n")
}

func BuildAnswerPrompt(question string, docs []domain.Document) string {
	return strings.NewReplacer(
		"{context}", JoinContext(docs),
		"{question}", question,
	).Replace(answerTemplate)
}
