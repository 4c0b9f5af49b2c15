package generation

import (
	"fmt"
	"strings"
)

// promptVersion is part of every topic cache key; bump it whenever the
// prompts below change so stale cached content is not reused.
const promptVersion = "v2"

const topicListSystem = "You extract study topics from course syllabi. Reply with JSON only."

func topicListPrompt(syllabus string) string {
	return fmt.Sprintf(`Extract a clean list of topics from this syllabus:

"%s"

Return JSON array only.`, syllabus)
}

const contentSystem = "You are an expert academic tutor creating exam-ready learning material. Output strict valid JSON only."

func contentPrompt(topic, notes string, p ContentPolicy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate content ONLY for the given topic.\n\nTopic: %q\n\nNotes Context:\n%q\n\n", topic, notes)
	b.WriteString(`RULES:
1. Use the notes as the main reference wherever possible.
2. If the notes do NOT contain information for this topic, fill the gaps using accurate general knowledge.
3. Keep explanations simple, clear, and suitable for fast revision.
4. OUTPUT MUST BE STRICT VALID JSON ONLY. No commentary, no backticks, no markdown.

FORMAT:
{
  "topic_name": "",
  "summary": {"text": "", "key_formulas": []},
  "flashcards": [{"question": "", "answer": ""}],
  "mcqs": [{"question": "", "options": ["", "", "", ""], "correct_answer": ""}],
  "analytical_questions": [""],
  "real_world_examples": [""],
  "quiz": [{"question": "", "options": ["", "", "", ""], "correct_answer": ""}]
}

CONTENT REQUIREMENTS:
- summary.text: 5 to 10 lines, simple explanation.
- summary.key_formulas: only formulas relevant to the topic.
`)
	fmt.Fprintf(&b, "- flashcards: %s short question-answer pairs.\n", countText(p.MinFlashcards, p.MaxFlashcards))
	fmt.Fprintf(&b, "- mcqs: %s conceptual MCQs", countText(p.MinMCQs, 0))
	if p.OptionsPerQuestion > 0 {
		fmt.Fprintf(&b, " with exactly %d options each", p.OptionsPerQuestion)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "- analytical_questions: %s deeper thinking questions.\n", countText(p.MinAnalytical, p.MaxAnalytical))
	fmt.Fprintf(&b, "- real_world_examples: %s practical examples.\n", countText(p.MinRealWorldExamples, 0))
	fmt.Fprintf(&b, "- quiz: %s MCQs", countText(p.MinQuiz, 0))
	if p.DistinctQuizQuestions {
		b.WriteString(" different from the mcqs above")
	}
	b.WriteString(".\n- correct_answer: the exact text of the right option.\n\nReturn ONLY the JSON object.")
	return b.String()
}

func countText(lo, hi int) string {
	switch {
	case hi > 0 && hi == lo:
		return fmt.Sprintf("exactly %d", lo)
	case hi > 0:
		return fmt.Sprintf("%d to %d", lo, hi)
	default:
		return fmt.Sprintf("at least %d", lo)
	}
}
