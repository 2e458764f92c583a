package core

import (
	"fmt"
	"time"
)

func planningPrompt(store *EvidenceStore, maxQueries int) string {
	feedback := ""
	if store.EvaluatorFeedback() != "" {
		feedback = fmt.Sprintf("\nEvaluator feedback from the previous iteration:\n%s\n", store.EvaluatorFeedback())
	}
	return fmt.Sprintf(`You are a strategic research planner. Break the question into a research plan, then translate the plan into search queries.

First analyze the question: identify its core components, implicit assumptions, and what foundational knowledge is required. Then outline a research plan with a logical progression of information needs. Finally produce 1-%d search queries that:
- Are specific and focused, written in natural language without Boolean operators (no AND/OR)
- Progress from foundational to specific information
- Avoid redundancy with each other and with searches already performed

Current Question: %s
%s
%s

Respond with JSON only, in this exact shape:
{"plan": "detailed research plan", "queries": ["query 1", "query 2"]}`,
		maxQueries, store.CurrentQuestion(), feedback, store.RenderHistory())
}

func decisionPrompt(store *EvidenceStore) string {
	return fmt.Sprintf(`You are a research evaluator. Analyze the gathered search results against the research goal and decide whether to answer the question or keep searching.

PROCESS:
1. Identify ALL information explicitly requested in the question
2. Determine what has been successfully retrieved
3. Identify every gap between what was requested and what was found

Only choose "continue" when a specific, searchable gap remains. When continuing, feedback must name exactly what information is missing and why it matters. The title must be a concise phrase suitable for display (e.g. "Gathering more information", "Providing answer").

CURRENT DATE AND TIME: %s

Current Question: %s

%s

Respond with JSON only, in this exact shape:
{"type": "continue" or "answer", "title": "concise phrase", "reasoning": "why this step", "feedback": "missing information (continue only)"}`,
		time.Now().UTC().Format(time.RFC3339), store.CurrentQuestion(), store.RenderHistory())
}

func summaryPrompt(query, conversationHistory string, item EvidenceItem, content string) string {
	return fmt.Sprintf(`You are a research extraction specialist. Given a research topic and raw web content, create a detailed synthesis as a cohesive narrative.

Extract the most valuable information related to the research topic: relevant facts, statistics, methodologies, claims and context. Preserve technical terminology and keep metrics and dates anchored to their original context (e.g. "2024 study of 150 patients" rather than "recent study"). If the content lacks a specific aspect of the research topic, state that plainly; never invent information or rely on outside knowledge.

Research Topic: %s

Conversation Context:
%s

Source Information:
- Title: %s
- URL: %s
- Date: %s
- Snippet: %s

Raw Web Content:
%s

Create a detailed synthesis of the above content relevant to the research topic.`,
		query, conversationHistory, item.Title, item.URL, item.PublishedDate, item.Snippet, content)
}

func answerPrompt(store *EvidenceStore, final bool) string {
	finalNote := ""
	if final {
		finalNote = "\nIMPORTANT: The research budget was exhausted before all information could be gathered. Make your best effort to answer from the available information, and clearly state any limitations or uncertainties.\n"
	}
	return fmt.Sprintf(`You are a helpful research assistant. Answer the user's question thoroughly and accurately based on the search results and page summaries below, citing source URLs where relevant.
%s
User Question: %s

%s

Provide a comprehensive answer to the user's question based on the information above.`,
		finalNote, store.InitialQuestion(), store.RenderHistory())
}
