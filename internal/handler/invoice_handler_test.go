package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoicescan/internal/domain"
	"invoicescan/internal/handler"
	"invoicescan/internal/service"
	"invoicescan/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func storedInvoice() *domain.NormalizedInvoice {
	return &domain.NormalizedInvoice{
		Invoice: domain.Invoice{
			InvoiceID:    strPtr("36259"),
			VendorName:   strPtr("SuperStore"),
			InvoiceTotal: floatPtr(58.11),
			Items:        []domain.LineItem{{Name: strPtr("Newell 330 Art")}},
		},
		FieldConfidence:   map[string]*float64{"VendorName": floatPtr(0.95)},
		OverallConfidence: 1,
	}
}

func multipartRequest(t *testing.T, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest(http.MethodPost, "/extract", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestInvoiceHandler_Extract_Success(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc, 1<<20)
	pdf := []byte("%PDF-1.4 body")

	svc.On("Extract", mock.Anything, mock.MatchedBy(func(in *service.ExtractInput) bool {
		return in.FileName == "invoice.pdf" && in.ContentType == "application/pdf" && bytes.Equal(in.Content, pdf)
	})).Return(&service.ExtractOutput{
		Invoice: storedInvoice(),
		Save:    domain.SaveResult{Status: domain.SaveStatusSaved, InvoiceID: "36259", Items: 1},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "invoice.pdf", "application/pdf", pdf)

	h.Extract(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "saved", w.Header().Get("X-Save-Status"))

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "data")
	assert.Contains(t, body, "dataConfidence")
	assert.JSONEq(t, `1`, string(body["confidence"]))

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(body["data"], &data))
	assert.Equal(t, "36259", data["InvoiceId"])
	assert.Nil(t, data["InvoiceDate"])
	svc.AssertExpectations(t)
}

func TestInvoiceHandler_Extract_MissingFile(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc, 1<<20)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/extract", nil)

	h.Extract(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestInvoiceHandler_Extract_TooLarge(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc, 8)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "invoice.pdf", "application/pdf", []byte("%PDF-1.4 way too long"))

	h.Extract(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestInvoiceHandler_Extract_BodyOverLimit(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc, 8)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "invoice.pdf", "application/pdf", bytes.Repeat([]byte("A"), 256<<10))

	h.Extract(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	svc.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestInvoiceHandler_Extract_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"invalid document", domain.ErrInvalidDocument, http.StatusBadRequest, "Invalid document. Please upload a valid PDF invoice with high confidence."},
		{"low confidence", domain.ErrLowConfidence, http.StatusBadRequest, "Invalid document. Please upload a valid PDF invoice with high confidence."},
		{"analyzer down", errors.Join(domain.ErrAnalysisUnavailable, errors.New("timeout")), http.StatusServiceUnavailable, "The service is currently unavailable. Please try again later."},
		{"store failure", errors.New("disk full"), http.StatusInternalServerError, "an internal error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mocks.MockInvoiceService)
			h := handler.NewInvoiceHandler(svc, 1<<20)
			svc.On("Extract", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = multipartRequest(t, "scan.pdf", "application/pdf", []byte("%PDF-"))

			h.Extract(c)

			assert.Equal(t, tt.status, w.Code)
			var body handler.ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body.Error)
		})
	}
}

func TestInvoiceHandler_GetByID(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc, 0)
	svc.On("GetByID", mock.Anything, "36259").Return(storedInvoice(), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/invoice/36259", nil)
	c.Params = gin.Params{{Key: "id", Value: "36259"}}

	h.GetByID(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "36259", body["InvoiceId"])
	assert.InDelta(t, 58.11, body["InvoiceTotal"], 1e-9)
	assert.NotContains(t, body, "data")
	assert.NotContains(t, body, "dataConfidence")
	assert.NotContains(t, body, "confidence")

	var got domain.Invoice
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Newell 330 Art", *got.Items[0].Name)
}

func TestInvoiceHandler_GetByID_NotFound(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc, 0)
	svc.On("GetByID", mock.Anything, "12345").Return(nil, domain.ErrInvoiceNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/invoice/12345", nil)
	c.Params = gin.Params{{Key: "id", Value: "12345"}}

	h.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Invoice not found","code":"NOT_FOUND"}`, w.Body.String())
}

func TestInvoiceHandler_ListByVendor_Unknown(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc, 0)
	svc.On("ListByVendor", mock.Anything, "Nobody").Return(&domain.VendorInvoices{
		VendorName: domain.UnknownVendor,
		Invoices:   []domain.NormalizedInvoice{},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/invoices/vendor/Nobody", nil)
	c.Params = gin.Params{{Key: "vendor", Value: "Nobody"}}

	h.ListByVendor(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"VendorName":"Unknown Vendor","TotalInvoices":0,"invoices":[]}`, w.Body.String())
}

func TestInvoiceHandler_ListByVendor_FlatInvoices(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc, 0)
	svc.On("ListByVendor", mock.Anything, "SuperStore").Return(&domain.VendorInvoices{
		VendorName:    "SuperStore",
		TotalInvoices: 1,
		Invoices:      []domain.NormalizedInvoice{*storedInvoice()},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/invoices/vendor/SuperStore", nil)
	c.Params = gin.Params{{Key: "vendor", Value: "SuperStore"}}

	h.ListByVendor(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		VendorName    string                   `json:"VendorName"`
		TotalInvoices int                      `json:"TotalInvoices"`
		Invoices      []map[string]interface{} `json:"invoices"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SuperStore", body.VendorName)
	assert.Equal(t, 1, body.TotalInvoices)
	require.Len(t, body.Invoices, 1)
	assert.Equal(t, "36259", body.Invoices[0]["InvoiceId"])
	assert.NotContains(t, body.Invoices[0], "data")
	assert.NotContains(t, body.Invoices[0], "dataConfidence")
}

func TestInvoiceHandler_ExportByVendor_CSV(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc, 0)
	svc.On("ListByVendor", mock.Anything, "SuperStore").Return(&domain.VendorInvoices{
		VendorName:    "SuperStore",
		TotalInvoices: 1,
		Invoices:      []domain.NormalizedInvoice{*storedInvoice()},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/invoices/vendor/SuperStore/export?format=csv", nil)
	c.Params = gin.Params{{Key: "vendor", Value: "SuperStore"}}

	h.ExportByVendor(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Regexp(t, `attachment; filename="SuperStore_\d{4}-\d{2}-\d{2}\.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "Newell 330 Art")
}

func TestInvoiceHandler_ExportByVendor_BadFormat(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	h := handler.NewInvoiceHandler(svc, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/invoices/vendor/SuperStore/export?format=pdf", nil)
	c.Params = gin.Params{{Key: "vendor", Value: "SuperStore"}}

	h.ExportByVendor(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "ListByVendor", mock.Anything, mock.Anything)
}
