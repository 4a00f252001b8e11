package assignment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/risflow/risflow/internal/platform/auth"
)

func requestAs(t *testing.T, method, target string, operatorID uuid.UUID, roles []string, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	ctx := req.Context()
	ctx = context.WithValue(ctx, auth.OperatorIDKey, operatorID.String())
	ctx = context.WithValue(ctx, auth.OperatorRolesKey, roles)
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandlerReconcile_AssignedToIDsBody(t *testing.T) {
	repo := &mockAssignmentRepo{}
	studyID := uuid.New()
	existing := uuid.New()
	seedCohort(repo, studyID, existing)

	h := NewHandler(NewService(repo))
	replacement := uuid.New()
	body := `{"assigned_to_ids": ["` + replacement.String() + `"], "role": "radiologist"}`

	c, rec := requestAs(t, http.MethodPost, "/studies/"+studyID.String()+"/assignment",
		uuid.New(), []string{"assignor"}, body)
	c.SetParamNames("id")
	c.SetParamValues(studyID.String())

	if err := h.Reconcile(c); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var result Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.NoOp {
		t.Fatal("replacing the cohort must not be a no-op")
	}
	if !contains(result.Delta.Added, replacement) {
		t.Errorf("posted assignee missing from added set: %+v", result.Delta)
	}
	if !contains(result.Delta.Removed, existing) {
		t.Errorf("previous assignee missing from removed set: %+v", result.Delta)
	}

	current, err := NewService(repo).CurrentAssignees(context.Background(), studyID)
	if err != nil {
		t.Fatal(err)
	}
	if !current[replacement] || current[existing] {
		t.Errorf("current assignees = %v, want only %s", current, replacement)
	}
}

func TestHandlerReconcile_InvalidAssigneeID(t *testing.T) {
	h := NewHandler(NewService(&mockAssignmentRepo{}))
	studyID := uuid.New()

	c, _ := requestAs(t, http.MethodPost, "/studies/"+studyID.String()+"/assignment",
		uuid.New(), []string{"assignor"}, `{"assigned_to_ids": ["not-a-uuid"]}`)
	c.SetParamNames("id")
	c.SetParamValues(studyID.String())

	err := h.Reconcile(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
