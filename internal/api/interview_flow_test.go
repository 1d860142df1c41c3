package api_test

import (
	"net/http"
	"testing"

	"github.com/BTreeMap/LegalDraft/internal/models"
	"github.com/BTreeMap/LegalDraft/internal/testutil"
)

// TestBlankDrivenInterview walks a document from first question to completion. Each
// answer removes its blank from the rescanned text, so the client stays at index 0.
func TestBlankDrivenInterview(t *testing.T) {
	ts := testutil.NewTestServer("Please provide the value.")
	text := "Name: ___, Age: ___"
	answers := []string{"John", "42"}

	for i, answer := range answers {
		rr := ts.Do(testutil.CreateHTTPRequest(t, http.MethodPost, "/process-document",
			map[string]interface{}{"documentText": text, "currentQuestionIndex": 0}))
		testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "process-document")
		var q models.InterviewQuestionResponse
		testutil.MustUnmarshalJSON(t, rr.Body.Bytes(), &q)
		if q.Complete {
			t.Fatalf("interview completed early after %d answers", i)
		}
		if q.TotalBlanks != len(answers)-i {
			t.Errorf("expected %d blanks left, got %d", len(answers)-i, q.TotalBlanks)
		}

		rr = ts.Do(testutil.CreateHTTPRequest(t, http.MethodPost, "/update-section",
			map[string]interface{}{"userInput": answer, "questionContext": q.BlankContext, "documentText": text}))
		testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "update-section")
		var u models.UpdateSectionResponse
		testutil.MustUnmarshalJSON(t, rr.Body.Bytes(), &u)
		text = u.UpdatedContent
	}

	if text != "Name: John, Age: 42" {
		t.Errorf("unexpected final document %q", text)
	}

	rr := ts.Do(testutil.CreateHTTPRequest(t, http.MethodPost, "/process-document",
		map[string]interface{}{"documentText": text}))
	resp := testutil.AssertJSONResponse(t, rr, true)
	if resp["complete"] != true {
		t.Errorf("expected completion, got %v", resp)
	}
}

func TestDeliveryLogEndpoints(t *testing.T) {
	ts := testutil.NewTestServer("LEASE AGREEMENT")
	testutil.SeedTestData(t, ts.Store)

	rr := ts.Do(testutil.CreateHTTPRequest(t, http.MethodPost, "/generate-document",
		map[string]interface{}{"documentType": "Lease Agreement", "responses": map[string]string{"tenant": "B"}, "deliverTo": "+15550000003"}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "generate and deliver")
	testutil.AssertJSONResponse(t, rr, true)

	rr = ts.Do(testutil.CreateHTTPRequest(t, http.MethodGet, "/deliveries", nil))
	var deliveries models.DeliveriesResponse
	testutil.MustUnmarshalJSON(t, rr.Body.Bytes(), &deliveries)
	if len(deliveries.Deliveries) != 2 || deliveries.Deliveries[0].Recipient != "15550000003" {
		t.Errorf("expected new delivery first, got %+v", deliveries.Deliveries)
	}
	if got := ts.WhatsApp.Messages(); len(got) != 1 || got[0].Body != "LEASE AGREEMENT" {
		t.Errorf("unexpected sends %+v", got)
	}
}
