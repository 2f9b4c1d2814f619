package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	handler(c)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp
}

func TestSuccess(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, map[string]string{"title": "Website QA"})
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Code != 0 || resp.Message != "ok" {
		t.Errorf("unexpected envelope: code=%d message=%q", resp.Code, resp.Message)
	}
}

func TestCreated(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Created(c, map[string]int{"id": 1})
	})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		send   func(c *gin.Context)
		status int
	}{
		{"bad request", func(c *gin.Context) { BadRequest(c, "invalid input") }, http.StatusBadRequest},
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, "session expired") }, http.StatusUnauthorized},
		{"forbidden", func(c *gin.Context) { Forbidden(c, "admin required") }, http.StatusForbidden},
		{"not found", func(c *gin.Context) { NotFound(c, "project not found") }, http.StatusNotFound},
		{"server error", func(c *gin.Context) { ServerError(c, "internal error") }, http.StatusInternalServerError},
		{"unavailable", func(c *gin.Context) { ServiceUnavailable(c, "database unavailable") }, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(tt.send)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			resp := parseResponse(t, w)
			if resp.Code != tt.status {
				t.Errorf("expected code %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestError_WithAppError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, NewServiceUnavailable("database unavailable"))
	})

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}

	resp := parseResponse(t, w)
	if resp.Message != "database unavailable" {
		t.Errorf("expected message 'database unavailable', got %q", resp.Message)
	}
}

func TestError_WithWrappedAppError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, errors.Join(errors.New("context"), NewNotFound("requirement not found")))
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestError_WithGenericError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, errors.New("something went wrong"))
	})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestPaginated_ComputesPages(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		pages    int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 5, 5},
	}

	for _, tt := range tests {
		w := performRequest(func(c *gin.Context) {
			Paginated(c, []int{}, tt.total, 1, tt.pageSize)
		})

		var body struct {
			Data Page `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if body.Data.Pages != tt.pages {
			t.Errorf("total=%d page_size=%d: pages = %d, expected %d", tt.total, tt.pageSize, body.Data.Pages, tt.pages)
		}
	}
}

func TestValidationError_FieldList(t *testing.T) {
	type createRequest struct {
		Title     string `validate:"required"`
		StartDate string `validate:"required"`
	}
	err := validator.New().Struct(createRequest{})

	w := performRequest(func(c *gin.Context) {
		ValidationError(c, err)
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	resp := parseResponse(t, w)
	if len(resp.Errors) != 2 {
		t.Fatalf("expected 2 field errors, got %d", len(resp.Errors))
	}
	if resp.Errors[0].Field != "title" || resp.Errors[1].Field != "start_date" {
		t.Errorf("unexpected field names: %+v", resp.Errors)
	}
	if resp.Errors[0].Rule != "required" {
		t.Errorf("expected rule 'required', got %q", resp.Errors[0].Rule)
	}
}

func TestValidationError_NonValidatorError(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		ValidationError(c, errors.New("unexpected EOF"))
	})

	resp := parseResponse(t, w)
	if resp.Message != "unexpected EOF" || len(resp.Errors) != 0 {
		t.Errorf("expected plain bad request, got %+v", resp)
	}
}

func TestAppError_ErrorInterface(t *testing.T) {
	err := NewNotFound("user not found")
	if err.Error() != "user not found" {
		t.Errorf("expected 'user not found', got %q", err.Error())
	}
}
