//go:build e2e

package e2e

import (
	"testing"
)

// TestStudyJourney walks the full product flow against a real database:
// ingest a document, run the pipeline, ask a grounded question, practice
// adaptively, sit a mock test, and read the aggregate stats.
func TestStudyJourney(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	env.LLM.ExtractionJSON = extractionFixture(8, []string{"Arithmetic", "Algebra", "Geometry"})
	env.LLM.AnswerText = "Compound interest grows on both the principal and accumulated interest [1]."

	// Ingest a study material document.
	status, resp := env.Post("/documents", map[string]interface{}{
		"filename": "quant-basics.pdf",
		"text": "Compound interest is interest computed on the principal and on " +
			"previously accumulated interest. Simple interest is computed on the " +
			"principal alone. The difference between compound and simple interest " +
			"grows with the number of periods. Ratios compare two quantities of the " +
			"same kind. A proportion states that two ratios are equal. Percentages " +
			"express a ratio with denominator one hundred. Profit percent relates " +
			"profit to cost price. A triangle has three sides and its angles sum to " +
			"one hundred eighty degrees. The area of a circle is pi times the radius " +
			"squared. Probability measures the likelihood of an event on a scale " +
			"from zero to one.",
		"page_count": 2,
	})
	if status != 201 && status != 202 {
		t.Fatalf("ingest returned status %d: %s", status, resp.Error)
	}

	var doc struct {
		ID         string `json:"id"`
		Status     string `json:"status"`
		ChunkCount int    `json:"chunk_count"`
	}
	env.DecodeData(resp, &doc)
	if doc.ID == "" {
		t.Fatal("ingest returned no document ID")
	}
	if doc.Status != "pending" {
		t.Fatalf("expected pending document, got %q", doc.Status)
	}

	// Drive the background pipeline to completion.
	env.ProcessPendingJobs()

	status, resp = env.Get("/documents/" + doc.ID)
	if status != 200 {
		t.Fatalf("get document returned status %d: %s", status, resp.Error)
	}
	env.DecodeData(resp, &doc)
	if doc.Status != "ready" {
		t.Fatalf("expected ready document after pipeline, got %q", doc.Status)
	}
	if doc.ChunkCount == 0 {
		t.Fatal("expected chunks after pipeline run")
	}

	// Ask a question grounded in the ingested material.
	status, resp = env.Post("/ask", map[string]interface{}{
		"query": "How does compound interest differ from simple interest?",
	})
	if status != 200 {
		t.Fatalf("ask returned status %d: %s", status, resp.Error)
	}
	var answer struct {
		Answer    string `json:"answer"`
		Refusal   bool   `json:"refusal"`
		Citations []struct {
			ChunkID    string `json:"chunk_id"`
			DocumentID string `json:"document_id"`
		} `json:"citations"`
	}
	env.DecodeData(resp, &answer)
	if answer.Refusal {
		t.Fatal("expected a grounded answer, got a refusal")
	}
	if len(answer.Citations) == 0 {
		t.Fatal("expected at least one citation")
	}
	if answer.Citations[0].DocumentID != doc.ID {
		t.Fatalf("citation points at document %q, want %q", answer.Citations[0].DocumentID, doc.ID)
	}

	// Practice: start a session and answer three questions.
	status, resp = env.Post("/practice/sessions", nil)
	if status != 201 {
		t.Fatalf("start session returned status %d: %s", status, resp.Error)
	}
	var session struct {
		ID string `json:"id"`
	}
	env.DecodeData(resp, &session)

	for i := 0; i < 3; i++ {
		status, resp = env.Get("/practice/sessions/" + session.ID + "/next")
		if status != 200 {
			t.Fatalf("next question returned status %d: %s", status, resp.Error)
		}
		var question struct {
			ID      string   `json:"id"`
			Options []string `json:"options"`
		}
		env.DecodeData(resp, &question)
		if len(question.Options) < 2 {
			t.Fatalf("question %s has too few options", question.ID)
		}

		status, resp = env.Post("/practice/sessions/"+session.ID+"/answers", map[string]interface{}{
			"question_id":  question.ID,
			"answer_index": 0,
			"seconds":      45,
		})
		if status != 200 {
			t.Fatalf("submit answer returned status %d: %s", status, resp.Error)
		}
		var result struct {
			CorrectIndex int     `json:"correct_index"`
			Overall      float64 `json:"overall"`
		}
		env.DecodeData(resp, &result)
		if result.CorrectIndex < 0 || result.CorrectIndex > 3 {
			t.Fatalf("correct index %d out of range", result.CorrectIndex)
		}
		if result.Overall < 0 || result.Overall > 1 {
			t.Fatalf("overall accuracy %f out of range", result.Overall)
		}
	}

	// Mock test: compose, submit, and re-read the finalized report.
	status, resp = env.Post("/tests", map[string]interface{}{"size": 5})
	if status != 201 {
		t.Fatalf("compose test returned status %d: %s", status, resp.Error)
	}
	var mockTest struct {
		ID          string   `json:"id"`
		QuestionIDs []string `json:"question_ids"`
	}
	env.DecodeData(resp, &mockTest)
	if len(mockTest.QuestionIDs) != 5 {
		t.Fatalf("expected 5 questions in mock test, got %d", len(mockTest.QuestionIDs))
	}

	answers := make(map[string]int, len(mockTest.QuestionIDs))
	for _, id := range mockTest.QuestionIDs {
		answers[id] = 0
	}
	status, resp = env.Post("/tests/"+mockTest.ID+"/submit", map[string]interface{}{
		"answers": answers,
	})
	if status != 200 {
		t.Fatalf("submit test returned status %d: %s", status, resp.Error)
	}
	var submitted struct {
		SubmittedAt string `json:"submitted_at"`
		Report      *struct {
			Total   int     `json:"total"`
			Correct int     `json:"correct"`
			Percent float64 `json:"percent"`
		} `json:"report"`
	}
	env.DecodeData(resp, &submitted)
	if submitted.SubmittedAt == "" {
		t.Fatal("expected submitted_at on a finalized test")
	}
	if submitted.Report == nil || submitted.Report.Total != 5 {
		t.Fatalf("expected a report over 5 questions, got %+v", submitted.Report)
	}

	// Resubmission is rejected.
	status, resp = env.Post("/tests/"+mockTest.ID+"/submit", map[string]interface{}{
		"answers": answers,
	})
	if status != 409 {
		t.Fatalf("expected 409 on resubmission, got %d", status)
	}

	// Stats reflect both the practice answers and the mock test.
	status, resp = env.Get("/stats")
	if status != 200 {
		t.Fatalf("stats returned status %d: %s", status, resp.Error)
	}
	var stats struct {
		TotalAttempts int                    `json:"total_attempts"`
		Overall       float64                `json:"overall"`
		Topics        map[string]interface{} `json:"topics"`
		WeakestTopics []string               `json:"weakest_topics"`
	}
	env.DecodeData(resp, &stats)
	if stats.TotalAttempts != 8 {
		t.Fatalf("expected 8 recorded attempts, got %d", stats.TotalAttempts)
	}
	if len(stats.Topics) == 0 {
		t.Fatal("expected per-topic stats after answering questions")
	}
}

// TestAskWithoutMaterial checks the refusal path when nothing is indexed.
func TestAskWithoutMaterial(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	status, resp := env.Post("/ask", map[string]interface{}{
		"query": "What is the remainder theorem?",
	})
	if status != 200 {
		t.Fatalf("ask returned status %d: %s", status, resp.Error)
	}
	var answer struct {
		Refusal   bool       `json:"refusal"`
		Citations []struct{} `json:"citations"`
	}
	env.DecodeData(resp, &answer)
	if !answer.Refusal {
		t.Fatal("expected a refusal with no indexed material")
	}
	if len(answer.Citations) != 0 {
		t.Fatal("a refusal must not carry citations")
	}
}
