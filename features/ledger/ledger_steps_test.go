package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"pricecompare/internal/common/types"
	"pricecompare/internal/pricing/api"
	"pricecompare/internal/pricing/domain"
	"pricecompare/internal/pricing/infrastructure/memory"
	"pricecompare/internal/pricing/infrastructure/secrets"
	"pricecompare/internal/server"
)

var errInjected = errors.New("injected storage failure")

// flakyItems fails the save after skip successful ones, fail times.
type flakyItems struct {
	domain.ItemRepository
	skip int
	fail int
}

func (r *flakyItems) Save(ctx context.Context, item *domain.Item) error {
	if r.fail > 0 {
		if r.skip > 0 {
			r.skip--
		} else {
			r.fail--
			return errInjected
		}
	}
	return r.ItemRepository.Save(ctx, item)
}

type flakySuppliers struct {
	domain.SupplierRepository
	fail int
}

func (r *flakySuppliers) Save(ctx context.Context, supplier *domain.Supplier) error {
	if r.fail > 0 {
		r.fail--
		return errInjected
	}
	return r.SupplierRepository.Save(ctx, supplier)
}

var supplierOperations = []domain.Operation{
	domain.OperationLink,
	domain.OperationUpdatePrice,
	domain.OperationUnlink,
	domain.OperationRemoveRebate,
	domain.OperationDeleteItem,
	domain.OperationDeleteSupplier,
}

type ledgerState struct {
	server    *httptest.Server
	store     *memory.DataStore
	items     *flakyItems
	suppliers *flakySuppliers
	secrets   *secrets.MemoryStore

	actorID  string
	roles    []string
	provided map[string]string

	status int
	body   []byte
}

func InitializeLedgerScenario(ctx *godog.ScenarioContext) {
	state := &ledgerState{}

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		return c, state.reset()
	})
	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if state.server != nil {
			state.server.Close()
		}
		return c, nil
	})

	// Catalog steps
	ctx.Step(`^an item "([^"]*)" of standard "([^"]*)" named "([^"]*)"$`, state.anItemOfStandardNamed)
	ctx.Step(`^a supplier "([^"]*)"$`, state.aSupplier)
	ctx.Step(`^I delete supplier "([^"]*)"$`, state.iDeleteSupplier)

	// Actor steps
	ctx.Step(`^actor "([^"]*)" holds the supplier role$`, state.actorHoldsTheSupplierRole)
	ctx.Step(`^actor "([^"]*)" presents wrong secrets$`, state.actorPresentsWrongSecrets)
	ctx.Step(`^actor "([^"]*)" presents only the "([^"]*)" secret$`, state.actorPresentsOnlyTheSecret)
	ctx.Step(`^the caller is anonymous$`, state.theCallerIsAnonymous)

	// Ledger steps
	ctx.Step(`^I link item "([^"]*)" to supplier "([^"]*)" at (\S+) per "([^"]*)"$`, state.iLink)
	ctx.Step(`^item "([^"]*)" is linked to supplier "([^"]*)" at (\S+) per "([^"]*)"$`, state.itemIsLinked)
	ctx.Step(`^I link item "([^"]*)" to supplier "([^"]*)" at (\S+) per "([^"]*)" with a FlatC rebate of (\S+) from "([^"]*)" to "([^"]*)"$`, state.iLinkWithFlatRebate)
	ctx.Step(`^item "([^"]*)" is linked to supplier "([^"]*)" at (\S+) per "([^"]*)" with a FlatC rebate of (\S+) from "([^"]*)" to "([^"]*)"$`, state.itemIsLinkedWithFlatRebate)
	ctx.Step(`^I link item "([^"]*)" to supplier "([^"]*)" at (\S+) per "([^"]*)" with rebate:$`, state.iLinkWithRebate)
	ctx.Step(`^I update the price of item "([^"]*)" at supplier "([^"]*)" to (\S+)$`, state.iUpdateThePrice)
	ctx.Step(`^I update the price of item "([^"]*)" at supplier "([^"]*)" with a FlatC rebate of (\S+) from "([^"]*)" to "([^"]*)"$`, state.iUpdateWithFlatRebate)
	ctx.Step(`^I unlink item "([^"]*)" from supplier "([^"]*)"$`, state.iUnlink)
	ctx.Step(`^I remove rebate (\d+) from item "([^"]*)" at supplier "([^"]*)"$`, state.iRemoveRebate)

	// Fault injection steps
	ctx.Step(`^the supplier store fails its next save$`, state.theSupplierStoreFailsItsNextSave)
	ctx.Step(`^the item store fails its next save$`, state.theItemStoreFailsItsNextSave)
	ctx.Step(`^the item store fails the save after next$`, state.theItemStoreFailsTheSaveAfterNext)

	// Outcome steps
	ctx.Step(`^the response status should be (\d+)$`, state.theResponseStatusShouldBe)
	ctx.Step(`^the error should contain "([^"]*)"$`, state.theErrorShouldContain)
	ctx.Step(`^item "([^"]*)" should list supplier "([^"]*)" once at (\S+) per "([^"]*)"$`, state.itemShouldListSupplierOnce)
	ctx.Step(`^supplier "([^"]*)" should list item "([^"]*)" once at (\S+) per "([^"]*)"$`, state.supplierShouldListItemOnce)
	ctx.Step(`^item "([^"]*)" should not list supplier "([^"]*)"$`, state.itemShouldNotListSupplier)
	ctx.Step(`^supplier "([^"]*)" should not list item "([^"]*)"$`, state.supplierShouldNotListItem)
	ctx.Step(`^item "([^"]*)" should carry (\d+) rebates for supplier "([^"]*)"$`, state.itemShouldCarryRebates)
	ctx.Step(`^supplier "([^"]*)" should carry (\d+) rebates for item "([^"]*)"$`, state.supplierShouldCarryRebates)
	ctx.Step(`^the mirrors should be consistent$`, state.theMirrorsShouldBeConsistent)
	ctx.Step(`^the audit should report (\d+) divergences? of kind "([^"]*)"$`, state.theAuditShouldReport)
}

func (s *ledgerState) reset() error {
	s.store = memory.NewDataStore()
	s.items = &flakyItems{ItemRepository: s.store.Items()}
	s.suppliers = &flakySuppliers{SupplierRepository: s.store.Suppliers()}
	s.secrets = secrets.NewMemoryStore()
	s.actorID, s.roles, s.provided = "", nil, map[string]string{}

	service := server.NewLedgerService(&server.Storage{
		Items:     s.items,
		Suppliers: s.suppliers,
		Secrets:   s.secrets,
	})
	s.server = httptest.NewServer(server.NewHandler(service, server.Options{Environment: "test"}))
	return nil
}

func (s *ledgerState) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.server.URL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.actorID != "" {
		req.Header.Set("X-Actor-ID", s.actorID)
		req.Header.Set("X-Actor-Roles", strings.Join(s.roles, ","))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	s.status = resp.StatusCode
	s.body, err = io.ReadAll(resp.Body)
	return err
}

func (s *ledgerState) expectStatus(want int) error {
	if s.status != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, s.status, s.body)
	}
	return nil
}

func pairPath(code, supplier string) string {
	return "/items/" + url.PathEscape(code) + "/suppliers/" + url.PathEscape(supplier)
}

func (s *ledgerState) anItemOfStandardNamed(code, standard, name string) error {
	if err := s.do(http.MethodPost, "/items", api.CreateItemRequest{Standard: standard, Code: code, Name: name}); err != nil {
		return err
	}
	return s.expectStatus(http.StatusCreated)
}

func (s *ledgerState) aSupplier(name string) error {
	if err := s.do(http.MethodPost, "/suppliers", api.CreateSupplierRequest{Name: name}); err != nil {
		return err
	}
	return s.expectStatus(http.StatusCreated)
}

func (s *ledgerState) iDeleteSupplier(name string) error {
	return s.do(http.MethodDelete, "/suppliers/"+url.PathEscape(name), api.SecretsRequest{Secrets: s.provided})
}

func (s *ledgerState) actorHoldsTheSupplierRole(actor string) error {
	s.actorID = actor
	s.roles = []string{string(domain.RoleSupplier)}
	for _, op := range supplierOperations {
		name := domain.SecretName(domain.RoleSupplier, op)
		plain := "pw-" + name
		hash, err := secrets.Hash(plain, bcrypt.MinCost)
		if err != nil {
			return err
		}
		s.secrets.Put(secrets.Entry{Actor: types.ActorID(actor), Role: domain.RoleSupplier, Name: name, Hash: hash})
		s.provided[name] = plain
	}
	return nil
}

func (s *ledgerState) actorPresentsWrongSecrets(actor string) error {
	if actor != s.actorID {
		return fmt.Errorf("actor %q was never set up", actor)
	}
	for name := range s.provided {
		s.provided[name] = "wrong"
	}
	return nil
}

func (s *ledgerState) actorPresentsOnlyTheSecret(actor, name string) error {
	if actor != s.actorID {
		return fmt.Errorf("actor %q was never set up", actor)
	}
	plain, ok := s.provided[name]
	if !ok {
		return fmt.Errorf("no secret named %q", name)
	}
	s.provided = map[string]string{name: plain}
	return nil
}

func (s *ledgerState) theCallerIsAnonymous() error {
	s.actorID = ""
	return nil
}

func (s *ledgerState) link(code, supplier, normal, method string, rebate *domain.RebateInput) error {
	price, err := decimal.NewFromString(normal)
	if err != nil {
		return err
	}
	return s.do(http.MethodPut, pairPath(code, supplier), api.LinkRequest{
		SecretsRequest: api.SecretsRequest{Secrets: s.provided},
		Normal:         &price,
		Method:         method,
		Rebate:         rebate,
	})
}

func flatRebate(c, start, end string) (*domain.RebateInput, error) {
	raw := fmt.Sprintf(`{"typeOfRebate":"FlatC","C":%q,"rebatePricingMethod":"unit","start":%q,"end":%q,"onlyMembers":false}`, c, start, end)
	var in domain.RebateInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *ledgerState) iLink(code, supplier, normal, method string) error {
	return s.link(code, supplier, normal, method, nil)
}

func (s *ledgerState) itemIsLinked(code, supplier, normal, method string) error {
	if err := s.link(code, supplier, normal, method, nil); err != nil {
		return err
	}
	return s.expectStatus(http.StatusOK)
}

func (s *ledgerState) iLinkWithFlatRebate(code, supplier, normal, method, c, start, end string) error {
	rebate, err := flatRebate(c, start, end)
	if err != nil {
		return err
	}
	return s.link(code, supplier, normal, method, rebate)
}

func (s *ledgerState) itemIsLinkedWithFlatRebate(code, supplier, normal, method, c, start, end string) error {
	if err := s.iLinkWithFlatRebate(code, supplier, normal, method, c, start, end); err != nil {
		return err
	}
	return s.expectStatus(http.StatusOK)
}

func (s *ledgerState) iLinkWithRebate(code, supplier, normal, method string, doc *godog.DocString) error {
	var rebate domain.RebateInput
	if err := json.Unmarshal([]byte(doc.Content), &rebate); err != nil {
		return fmt.Errorf("rebate fixture: %w", err)
	}
	return s.link(code, supplier, normal, method, &rebate)
}

func (s *ledgerState) iUpdateThePrice(code, supplier, normal string) error {
	price, err := decimal.NewFromString(normal)
	if err != nil {
		return err
	}
	return s.do(http.MethodPatch, pairPath(code, supplier), api.UpdatePriceRequest{
		SecretsRequest: api.SecretsRequest{Secrets: s.provided},
		Normal:         &price,
	})
}

func (s *ledgerState) iUpdateWithFlatRebate(code, supplier, c, start, end string) error {
	rebate, err := flatRebate(c, start, end)
	if err != nil {
		return err
	}
	return s.do(http.MethodPatch, pairPath(code, supplier), api.UpdatePriceRequest{
		SecretsRequest: api.SecretsRequest{Secrets: s.provided},
		Rebate:         rebate,
	})
}

func (s *ledgerState) iUnlink(code, supplier string) error {
	return s.do(http.MethodDelete, pairPath(code, supplier), api.SecretsRequest{Secrets: s.provided})
}

func (s *ledgerState) iRemoveRebate(index int, code, supplier string) error {
	return s.do(http.MethodDelete, fmt.Sprintf("%s/rebates/%d", pairPath(code, supplier), index),
		api.SecretsRequest{Secrets: s.provided})
}

func (s *ledgerState) theSupplierStoreFailsItsNextSave() error {
	s.suppliers.fail = 1
	return nil
}

func (s *ledgerState) theItemStoreFailsItsNextSave() error {
	s.items.skip, s.items.fail = 0, 1
	return nil
}

func (s *ledgerState) theItemStoreFailsTheSaveAfterNext() error {
	s.items.skip, s.items.fail = 1, 1
	return nil
}

func (s *ledgerState) theResponseStatusShouldBe(status int) error {
	return s.expectStatus(status)
}

func (s *ledgerState) theErrorShouldContain(text string) error {
	var resp api.ErrorResponse
	if err := json.Unmarshal(s.body, &resp); err != nil {
		return fmt.Errorf("decoding error body %q: %w", s.body, err)
	}
	if !strings.Contains(resp.Error, text) {
		return fmt.Errorf("expected error containing %q, got %q", text, resp.Error)
	}
	return nil
}

// Mirror assertions read the store directly so they see committed state only.

func (s *ledgerState) supplierEntries(code, supplier string) ([]domain.SupplierPriceEntry, error) {
	item, err := s.store.Items().FindByCode(context.Background(), code)
	if err != nil {
		return nil, err
	}
	var out []domain.SupplierPriceEntry
	for _, e := range item.Suppliers() {
		if e.Supplier == supplier {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *ledgerState) itemEntries(supplier, code string) ([]domain.ItemPriceEntry, error) {
	sup, err := s.store.Suppliers().FindByName(context.Background(), supplier)
	if err != nil {
		return nil, err
	}
	var out []domain.ItemPriceEntry
	for _, e := range sup.Items() {
		if e.Item.Code == code {
			out = append(out, e)
		}
	}
	return out, nil
}

func checkPricing(p domain.PricingBlock, normal, method string) error {
	want, err := decimal.NewFromString(normal)
	if err != nil {
		return err
	}
	if !p.Normal.Equal(want) || string(p.Method) != method {
		return fmt.Errorf("expected %s per %s, got %s per %s", want, method, p.Normal, p.Method)
	}
	return nil
}

func (s *ledgerState) itemShouldListSupplierOnce(code, supplier, normal, method string) error {
	entries, err := s.supplierEntries(code, supplier)
	if err != nil {
		return err
	}
	if len(entries) != 1 {
		return fmt.Errorf("item %s lists supplier %s %d times", code, supplier, len(entries))
	}
	return checkPricing(entries[0].Pricing, normal, method)
}

func (s *ledgerState) supplierShouldListItemOnce(supplier, code, normal, method string) error {
	entries, err := s.itemEntries(supplier, code)
	if err != nil {
		return err
	}
	if len(entries) != 1 {
		return fmt.Errorf("supplier %s lists item %s %d times", supplier, code, len(entries))
	}
	return checkPricing(entries[0].Pricing, normal, method)
}

func (s *ledgerState) itemShouldNotListSupplier(code, supplier string) error {
	entries, err := s.supplierEntries(code, supplier)
	if err != nil {
		return err
	}
	if len(entries) != 0 {
		return fmt.Errorf("item %s still lists supplier %s", code, supplier)
	}
	return nil
}

func (s *ledgerState) supplierShouldNotListItem(supplier, code string) error {
	entries, err := s.itemEntries(supplier, code)
	if errors.Is(err, domain.ErrSupplierNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) != 0 {
		return fmt.Errorf("supplier %s still lists item %s", supplier, code)
	}
	return nil
}

func (s *ledgerState) itemShouldCarryRebates(code string, n int, supplier string) error {
	entries, err := s.supplierEntries(code, supplier)
	if err != nil {
		return err
	}
	if len(entries) != 1 {
		return fmt.Errorf("item %s lists supplier %s %d times", code, supplier, len(entries))
	}
	if got := len(entries[0].Pricing.Limited); got != n {
		return fmt.Errorf("item side carries %d rebates, want %d", got, n)
	}
	return nil
}

func (s *ledgerState) supplierShouldCarryRebates(supplier string, n int, code string) error {
	entries, err := s.itemEntries(supplier, code)
	if err != nil {
		return err
	}
	if len(entries) != 1 {
		return fmt.Errorf("supplier %s lists item %s %d times", supplier, code, len(entries))
	}
	if got := len(entries[0].Pricing.Limited); got != n {
		return fmt.Errorf("supplier side carries %d rebates, want %d", got, n)
	}
	return nil
}

func (s *ledgerState) audit() (api.AuditResponse, error) {
	var resp api.AuditResponse
	if err := s.do(http.MethodGet, "/audit", nil); err != nil {
		return resp, err
	}
	if err := s.expectStatus(http.StatusOK); err != nil {
		return resp, err
	}
	return resp, json.Unmarshal(s.body, &resp)
}

func (s *ledgerState) theMirrorsShouldBeConsistent() error {
	resp, err := s.audit()
	if err != nil {
		return err
	}
	if resp.Count != 0 {
		return fmt.Errorf("expected consistent mirrors, audit found %d divergences: %+v", resp.Count, resp.Divergences)
	}
	return nil
}

func (s *ledgerState) theAuditShouldReport(n int, kind string) error {
	resp, err := s.audit()
	if err != nil {
		return err
	}
	if resp.Count != n {
		return fmt.Errorf("expected %d divergences, got %d: %+v", n, resp.Count, resp.Divergences)
	}
	for _, d := range resp.Divergences {
		if d.Kind != kind {
			return fmt.Errorf("expected kind %s, got %s", kind, d.Kind)
		}
	}
	return nil
}
