package contract_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sea-intercept/internal/contract"
	"sea-intercept/internal/exchange"
)

const openapiYAML = `
openapi: 3.0.3
info: { title: reqres, version: "1.0.0" }
paths:
  /api/users:
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              properties:
                name: { type: string }
                job: { type: string }
              required: [name, job]
      responses:
        "201":
          description: created
          content:
            application/json:
              schema:
                type: object
                properties:
                  id: { type: string }
                  name: { type: string }
                  job: { type: string }
                required: [id, name, job]
  /api/users/{id}:
    get:
      parameters:
        - { name: id, in: path, required: true, schema: { type: integer } }
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: object
                required: [data]
                properties:
                  data:
                    type: object
                    required: [id, email]
                    properties:
                      id: { type: integer }
                      email: { type: string }
`

func jsonHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return h
}

func load(t *testing.T) *contract.Validator {
	t.Helper()
	v, err := contract.LoadFromBytes([]byte(openapiYAML))
	if err != nil {
		t.Fatalf("load openapi: %v", err)
	}
	return v
}

func TestValidateResponse_OKAndCovered(t *testing.T) {
	v := load(t)
	resp := &exchange.Response{
		StatusCode: 200,
		Headers:    jsonHeader(),
		Body:       []byte(`{"data":{"id":2,"email":"janet.weaver@reqres.in"}}`),
	}
	route, err := v.ValidateResponse(context.Background(), "GET", "http://localhost/api/users/2", resp)
	if err != nil {
		t.Fatalf("ValidateResponse: %v", err)
	}
	if diff := cmp.Diff(contract.Route{Method: "GET", Path: "/api/users/{id}"}, route); diff != "" {
		t.Fatalf("route mismatch (-want +got):\n%s", diff)
	}
	want := map[string]map[string]bool{"GET": {"/api/users/{id}": true}}
	if diff := cmp.Diff(want, v.Covered()); diff != "" {
		t.Fatalf("covered mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateResponse_MissingContentTypeFails(t *testing.T) {
	v := load(t)
	resp := &exchange.Response{StatusCode: 200, Headers: http.Header{}, Body: []byte(`{"data":{"id":2,"email":"x"}}`)}
	if _, err := v.ValidateResponse(context.Background(), "GET", "http://localhost/api/users/2", resp); err == nil {
		t.Fatal("missing response Content-Type must break contract")
	}
}

func TestValidateResponse_UnknownRoute(t *testing.T) {
	v := load(t)
	resp := &exchange.Response{StatusCode: 200, Headers: jsonHeader(), Body: []byte(`{}`)}
	_, err := v.ValidateResponse(context.Background(), "GET", "http://localhost/api/unknown", resp)
	if err == nil || !strings.Contains(err.Error(), "route not found") {
		t.Fatalf("want route not found, got %v", err)
	}
	if len(v.Covered()) != 0 {
		t.Fatalf("unmatched calls must not count as covered: %v", v.Covered())
	}
}

func TestValidateExchange_RewrittenRequest(t *testing.T) {
	v := load(t)
	ex := exchange.Exchange{
		Alias: "createUser",
		State: exchange.Completed,
		Request: &exchange.Request{
			Method:  "POST",
			URL:     "http://localhost/api/users",
			Headers: jsonHeader(),
			Body:    []byte(`{"name":"Olga","job":"QA Engineer"}`),
		},
		Response: &exchange.Response{
			StatusCode: 201,
			Headers:    jsonHeader(),
			Body:       []byte(`{"id":"848","name":"Olga","job":"QA Engineer"}`),
		},
	}
	if _, err := v.ValidateExchange(context.Background(), ex); err != nil {
		t.Fatalf("ValidateExchange: %v", err)
	}

	ex.Request.Body = []byte(`{"name":"Olga"}`)
	_, err := v.ValidateExchange(context.Background(), ex)
	if err == nil || !strings.HasPrefix(err.Error(), "request:") {
		t.Fatalf("want request validation failure, got %v", err)
	}
}

func TestValidateExchange_Failed(t *testing.T) {
	v := load(t)
	ex := exchange.Exchange{Alias: "getUser", State: exchange.Failed, Request: &exchange.Request{Method: "GET"}}
	if _, err := v.ValidateExchange(context.Background(), ex); err == nil {
		t.Fatal("failed exchange has no response to validate")
	}
}
