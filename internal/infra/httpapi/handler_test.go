package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)
	handler := NewGiveawayHandler(nil, nil, nil, nil, "secret", log)
	return SetupRouter(handler)
}

func TestExecuteRejectsMalformedDryRun(t *testing.T) {
	router := testRouter()

	// A typo must never be defaulted into a real payout.
	for _, raw := range []string{"yes", "maybe", "tru", "1x"} {
		req := httptest.NewRequest(http.MethodPost, "/api/giveaway/execute?dry_run="+raw, nil)
		req.Header.Set(secretHeader, "secret")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "dry_run=%s", raw)
		assert.Contains(t, rec.Body.String(), "dry_run must be a boolean")
	}
}

func TestExecuteRequiresAdminSecret(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/giveaway/execute", nil)
	req.Header.Set(secretHeader, "wrong")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
