package faults

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&AuthenticationError{Reason: "bad token"}, http.StatusUnauthorized},
		{&ValidationError{Field: "phone", Reason: "too short"}, http.StatusBadRequest},
		{&NotFoundError{Resource: "organization"}, http.StatusNotFound},
		{&UpstreamError{Service: "retell", Status: 502}, http.StatusInternalServerError},
		{&StorageError{Op: "insert lead", Err: errors.New("conn refused")}, http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestHTTPStatusWrapped(t *testing.T) {
	err := fmt.Errorf("intake: %w", &ValidationError{Field: "name", Reason: "required"})
	if got := HTTPStatus(err); got != http.StatusBadRequest {
		t.Errorf("wrapped validation error mapped to %d", got)
	}
}

func TestErrorMessages(t *testing.T) {
	if msg := (&NotFoundError{Resource: "lead", ID: "abc"}).Error(); msg != "lead abc not found" {
		t.Errorf("unexpected message: %s", msg)
	}
	if msg := (&ValidationError{Reason: "not json"}).Error(); msg != "invalid payload: not json" {
		t.Errorf("unexpected message: %s", msg)
	}
	inner := errors.New("boom")
	if !errors.Is(&StorageError{Op: "x", Err: inner}, inner) {
		t.Error("StorageError should unwrap to inner error")
	}
}
