package features

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/cucumber/godog"

	"pricecompare/internal/common/config"
	"pricecompare/internal/server"
)

type contractState struct {
	server   *httptest.Server
	response *http.Response
	body     map[string]any
}

func InitializeContractScenario(sc *godog.ScenarioContext) {
	state := &contractState{}

	sc.Step(`^the service is running$`, state.theServiceIsRunning)
	sc.Step(`^I request "([^"]*)"$`, state.iRequest)
	sc.Step(`^the response status should be (\d+)$`, state.theResponseStatusShouldBe)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, state.theResponseFieldShouldBe)
	sc.Step(`^the response should carry an "([^"]*)" header$`, state.theResponseShouldCarryHeader)

	sc.After(func(ctx context.Context, scenario *godog.Scenario, err error) (context.Context, error) {
		if state.server != nil {
			state.server.Close()
		}
		if state.response != nil {
			state.response.Body.Close()
		}
		return ctx, nil
	})
}

func (s *contractState) theServiceIsRunning() error {
	ctx := context.Background()
	storage, err := server.OpenStorage(ctx, &config.Config{StorageDriver: config.StorageMemory})
	if err != nil {
		return err
	}
	handler := server.NewHandler(server.NewLedgerService(storage), server.Options{
		Environment: "test",
		Ready:       storage,
	})
	s.server = httptest.NewServer(handler)
	return nil
}

func (s *contractState) iRequest(path string) error {
	if s.server == nil {
		return fmt.Errorf("server not running")
	}
	resp, err := http.Get(s.server.URL + path)
	if err != nil {
		return fmt.Errorf("failed to request %s: %w", path, err)
	}
	s.response = resp
	s.body = nil
	_ = json.NewDecoder(resp.Body).Decode(&s.body)
	return nil
}

func (s *contractState) theResponseStatusShouldBe(expected int) error {
	if s.response == nil {
		return fmt.Errorf("no response received")
	}
	if s.response.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d", expected, s.response.StatusCode)
	}
	return nil
}

func (s *contractState) theResponseFieldShouldBe(field, expected string) error {
	got, ok := s.body[field]
	if !ok {
		return fmt.Errorf("response has no field %q", field)
	}
	if got != expected {
		return fmt.Errorf("expected %s=%q, got %v", field, expected, got)
	}
	return nil
}

func (s *contractState) theResponseShouldCarryHeader(name string) error {
	if s.response.Header.Get(name) == "" {
		return fmt.Errorf("response has no %s header", name)
	}
	return nil
}
