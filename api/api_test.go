/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	"github.com/paymatch/paymatch"
	"github.com/paymatch/paymatch/config"
	"github.com/paymatch/paymatch/database"
	"github.com/paymatch/paymatch/database/mocks"
	"github.com/paymatch/paymatch/internal/apierror"
	"github.com/paymatch/paymatch/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response *httptest.ResponseRecorder
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) error {
	req, err := http.NewRequest(s.Method, s.Route, s.Payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	s.Router.ServeHTTP(s.Response, req)
	return nil
}

func setupRouter(t *testing.T) (*gin.Engine, *mocks.MockDataSource) {
	t.Helper()
	config.MockConfig(&config.Configuration{
		ProjectName: "paymatch-test",
		Server:      config.ServerConfig{Secure: false},
	})

	matching := config.DefaultMatching()
	matching.PersistenceTimeoutMs = 100

	ds := new(mocks.MockDataSource)
	p := paymatch.New(ds,
		paymatch.WithMatchingConfig(matching),
		paymatch.WithClock(func() time.Time { return testNow }),
	)
	a := NewAPI(p)
	require.NotNil(t, a)
	return a.Router(), ds
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), v))
}

func registeredDevice(t *testing.T) (*model.Device, string) {
	t.Helper()
	device, credential, err := model.NewDevice("merchant_1", "till phone")
	require.NoError(t, err)
	return device, credential
}

func TestReceiveSMS_RequiresBearerCredential(t *testing.T) {
	router, ds := setupRouter(t)

	resp := httptest.NewRecorder()
	err := SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, map[string]interface{}{"device_id": "dev_1", "message": "Rs.500 credited", "received_at": 1717243200000}),
		Router:   router,
		Response: resp,
		Method:   "POST",
		Route:    "/sms/webhook",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	ds.AssertNotCalled(t, "GetDevice", mock.Anything, mock.Anything)
}

func TestReceiveSMS_UnknownDevice(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("GetDevice", mock.Anything, "dev_missing").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "Device not found", database.ErrDeviceNotFound))

	resp := httptest.NewRecorder()
	err := SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, map[string]interface{}{"device_id": "dev_missing", "message": "Rs.500 credited", "received_at": 1717243200000}),
		Router:   router,
		Response: resp,
		Method:   "POST",
		Route:    "/sms/webhook",
		Header:   map[string]string{"Authorization": "Bearer whatever"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	var body map[string]interface{}
	decode(t, resp, &body)
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}

func TestReceiveSMS_InvalidPayload(t *testing.T) {
	router, _ := setupRouter(t)

	resp := httptest.NewRecorder()
	err := SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, map[string]interface{}{"device_id": "dev_1", "message": "   "}),
		Router:   router,
		Response: resp,
		Method:   "POST",
		Route:    "/sms/webhook",
		Header:   map[string]string{"Authorization": "Bearer secret"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestReceiveSMS_Unidentified(t *testing.T) {
	router, ds := setupRouter(t)
	device, credential := registeredDevice(t)

	ds.On("GetDevice", mock.Anything, device.DeviceID).Return(device, nil)
	ds.On("TouchDevice", mock.Anything, device.DeviceID, testNow).Return(nil)
	ds.On("RecordMessage", mock.Anything, mock.AnythingOfType("*model.IncomingMessage")).Return(nil)
	ds.On("GetEligibleRequests", mock.Anything, "merchant_1", testNow).Return([]model.PendingRequest{}, nil)
	ds.On("UpdateMessageOutcome", mock.Anything, mock.AnythingOfType("string"), model.MessageNeedsReview, 0, testNow).Return(nil)

	resp := httptest.NewRecorder()
	err := SetUpTestRequest(TestRequest{
		Payload: jsonBody(t, map[string]interface{}{
			"device_id":   device.DeviceID,
			"sender":      "VM-HDFCBK",
			"message":     "Rs.500.00 credited to a/c XX1234 by VPA alice@okhdfc UPI Ref 412345678901",
			"received_at": "2024-06-01T11:59:00Z",
		}),
		Router:   router,
		Response: resp,
		Method:   "POST",
		Route:    "/sms/webhook",
		Header:   map[string]string{"Authorization": "Bearer " + credential},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.Code)
	var body map[string]interface{}
	decode(t, resp, &body)
	assert.Equal(t, "needs_review", body["status"])
	assert.Equal(t, false, body["duplicate"])
	assert.NotEmpty(t, body["message_id"])
	ds.AssertExpectations(t)
}

func TestGetMessage(t *testing.T) {
	router, ds := setupRouter(t)
	msg := &model.IncomingMessage{MessageID: "msg_1", MerchantID: "merchant_1", Status: model.MessageNeedsReview}
	ds.On("GetMessage", mock.Anything, "msg_1").Return(msg, nil)
	ds.On("GetMessage", mock.Anything, "msg_missing").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "Message not found", database.ErrMessageNotFound))

	tests := []struct {
		route      string
		wantStatus int
	}{
		{"/messages/msg_1", http.StatusOK},
		{"/messages/msg_missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			resp := httptest.NewRecorder()
			require.NoError(t, SetUpTestRequest(TestRequest{Router: router, Response: resp, Method: "GET", Route: tt.route}))
			assert.Equal(t, tt.wantStatus, resp.Code)
		})
	}
}

func TestGetReviewQueue(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("ListReviewQueue", mock.Anything, "merchant_1", 10, 0).Return([]model.IncomingMessage{
		{MessageID: "msg_1", Status: model.MessageNeedsReview, CandidateCount: 0},
	}, nil)

	resp := httptest.NewRecorder()
	require.NoError(t, SetUpTestRequest(TestRequest{Router: router, Response: resp, Method: "GET", Route: "/messages/review?merchant_id=merchant_1&limit=10"}))

	assert.Equal(t, http.StatusOK, resp.Code)
	var entries []model.ReviewEntry
	decode(t, resp, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ReviewLabelUnidentified, entries[0].Label)
}

func TestGetReviewQueue_BadLimit(t *testing.T) {
	router, _ := setupRouter(t)

	resp := httptest.NewRecorder()
	require.NoError(t, SetUpTestRequest(TestRequest{Router: router, Response: resp, Method: "GET", Route: "/messages/review?limit=ten"}))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMatchMessage_MissingRequestID(t *testing.T) {
	router, ds := setupRouter(t)

	resp := httptest.NewRecorder()
	require.NoError(t, SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, map[string]string{"actor": "ops@merchant"}),
		Router:   router,
		Response: resp,
		Method:   "POST",
		Route:    "/messages/msg_1/match",
	}))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	ds.AssertNotCalled(t, "GetMessage", mock.Anything, mock.Anything)
}

func TestMatchMessage_AlreadyResolved(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("GetMessage", mock.Anything, "msg_1").Return(&model.IncomingMessage{
		MessageID:  "msg_1",
		MerchantID: "merchant_1",
		Status:     model.MessageAutoMatched,
	}, nil)

	resp := httptest.NewRecorder()
	require.NoError(t, SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, map[string]string{"request_id": "req_1", "actor": "ops@merchant"}),
		Router:   router,
		Response: resp,
		Method:   "POST",
		Route:    "/messages/msg_1/match",
	}))

	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestDismissMessage_WithoutBody(t *testing.T) {
	router, ds := setupRouter(t)
	msg := &model.IncomingMessage{MessageID: "msg_1", MerchantID: "merchant_1", Status: model.MessageNeedsReview}
	ds.On("GetMessage", mock.Anything, "msg_1").Return(msg, nil)
	ds.On("DismissMessage", mock.Anything, "msg_1", mock.AnythingOfType("model.AuditEvent")).Return(nil)

	resp := httptest.NewRecorder()
	require.NoError(t, SetUpTestRequest(TestRequest{Router: router, Response: resp, Method: "POST", Route: "/messages/msg_1/dismiss"}))

	assert.Equal(t, http.StatusOK, resp.Code)
	ds.AssertExpectations(t)
}

func TestCreatePendingRequest(t *testing.T) {
	router, ds := setupRouter(t)
	merchant := gofakeit.UUID()
	ds.On("CreatePendingRequest", mock.Anything, mock.AnythingOfType("*model.PendingRequest")).Return(nil)

	resp := httptest.NewRecorder()
	require.NoError(t, SetUpTestRequest(TestRequest{
		Payload: jsonBody(t, map[string]interface{}{
			"merchant_id": merchant,
			"amount":      50000,
			"expires_at":  testNow.Add(time.Hour),
		}),
		Router:   router,
		Response: resp,
		Method:   "POST",
		Route:    "/requests",
	}))

	assert.Equal(t, http.StatusCreated, resp.Code)
	var created model.PendingRequest
	decode(t, resp, &created)
	assert.Equal(t, merchant, created.MerchantID)
	assert.Equal(t, int64(50000), created.Amount)
	assert.Equal(t, model.RequestAwaiting, created.Status)
	assert.NotEmpty(t, created.RequestID)
}

func TestCreatePendingRequest_Invalid(t *testing.T) {
	router, ds := setupRouter(t)

	resp := httptest.NewRecorder()
	require.NoError(t, SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, map[string]interface{}{"amount": 0}),
		Router:   router,
		Response: resp,
		Method:   "POST",
		Route:    "/requests",
	}))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	ds.AssertNotCalled(t, "CreatePendingRequest", mock.Anything, mock.Anything)
}

func TestGetPendingRequest_NotFound(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("GetPendingRequest", mock.Anything, "req_missing").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "Pending request not found", database.ErrRequestNotFound))

	resp := httptest.NewRecorder()
	require.NoError(t, SetUpTestRequest(TestRequest{Router: router, Response: resp, Method: "GET", Route: "/requests/req_missing"}))

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRegisterDevice(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("RegisterDevice", mock.Anything, mock.AnythingOfType("*model.Device")).Return(nil)

	resp := httptest.NewRecorder()
	require.NoError(t, SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, map[string]string{"merchant_id": "merchant_1", "name": "counter phone"}),
		Router:   router,
		Response: resp,
		Method:   "POST",
		Route:    "/devices",
	}))

	assert.Equal(t, http.StatusCreated, resp.Code)
	var body map[string]interface{}
	decode(t, resp, &body)
	assert.NotEmpty(t, body["credential"])
	assert.NotEmpty(t, body["device_id"])
	assert.NotContains(t, body, "credential_hash")
}

func TestRevokeDevice(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("RevokeDevice", mock.Anything, "dev_1", testNow).Return(nil)
	ds.On("RecordAuditEvent", mock.Anything, mock.AnythingOfType("model.AuditEvent")).Return(nil)

	resp := httptest.NewRecorder()
	require.NoError(t, SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, map[string]string{"actor": "ops@merchant"}),
		Router:   router,
		Response: resp,
		Method:   "POST",
		Route:    "/devices/dev_1/revoke",
	}))

	assert.Equal(t, http.StatusOK, resp.Code)
	ds.AssertExpectations(t)
}

func TestOperatorKeyRequiredWhenSecure(t *testing.T) {
	router, _ := setupRouter(t)
	config.MockConfig(&config.Configuration{
		ProjectName: "paymatch-test",
		Server:      config.ServerConfig{Secure: true, SecretKey: "operator-key"},
	})

	resp := httptest.NewRecorder()
	require.NoError(t, SetUpTestRequest(TestRequest{Router: router, Response: resp, Method: "GET", Route: "/requests/req_1"}))

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
