package crag

const (
	ScoreSystemMessageTmpl = `
You are a strict relevance judge. You rate how relevant a document is to a query on a scale from 0 to 1.
`
	ScorePromptTmpl = `
On a scale from 0 to 1, how relevant is the following document to the query?
Respond with ONLY the score as a number between 0 and 1, nothing else.

Query: {{.Query}}

Document:
{{.Document}}

Relevance score:`

	RefineSystemMessageTmpl = `
You extract the key information from documents as concise bullet points.
`
	RefinePromptTmpl = `
Extract the key points from the following document as a bulleted list.
Output one bullet per line, starting each line with "- ". Do not add any other text.

Document:
{{.Document}}

Key points:`

	RewriteSystemMessageTmpl = `
You rewrite conversational questions into short keyword queries suitable for a web search engine.
`
	RewritePromptTmpl = `
Rewrite the following question as a concise web search query. Output only the rewritten query on a single line, with no quotes or explanations.

Question: {{.Query}}

Search query:`

	AnswerSystemMessageTmpl = `
You answer questions using only the provided knowledge. Cite the listed sources inline or at the end of your answer. If the knowledge is insufficient, say so instead of guessing.
`
	AnswerPromptTmpl = `
Answer the question below using the provided knowledge, and cite your sources.

Question: {{.Query}}

Knowledge:
{{.Knowledge}}

Sources:
{{.Sources}}

Answer:`
)
