package generation_test

import (
	"encoding/json"
	"fmt"
)

// topicDoc builds a generated-topic document that satisfies the default
// content policy.
func topicDoc(name string) map[string]any {
	mcq := func(prefix string, i int) map[string]any {
		return map[string]any{
			"question":       fmt.Sprintf("%s %s question %d?", name, prefix, i),
			"options":        []string{"a", "b", "c", "d"},
			"correct_answer": "a",
		}
	}
	var flashcards, mcqs, quiz []map[string]any
	for i := range 6 {
		flashcards = append(flashcards, map[string]any{"question": fmt.Sprintf("card %d", i), "answer": "answer"})
	}
	for i := range 5 {
		mcqs = append(mcqs, mcq("mcq", i))
		quiz = append(quiz, mcq("quiz", i))
	}
	return map[string]any{
		"topic_name":           name,
		"summary":              map[string]any{"text": "A short summary of " + name, "key_formulas": []string{}},
		"flashcards":           flashcards,
		"mcqs":                 mcqs,
		"analytical_questions": []string{"why?", "how?", "what if?"},
		"real_world_examples":  []string{"one", "two", "three"},
		"quiz":                 quiz,
		"performance":          map[string]any{"total_questions": 99, "correct_answers": 42, "topic_depth_score": 77, "completed": true},
	}
}

func topicJSON(name string) string {
	data, err := json.Marshal(topicDoc(name))
	if err != nil {
		panic(err)
	}
	return string(data)
}
