package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"pricecompare/internal/pricing/domain"
	"pricecompare/internal/pricing/infrastructure/memory"
)

type DataStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *memory.DataStore
}

func TestDataStoreSuite(t *testing.T) {
	suite.Run(t, new(DataStoreSuite))
}

func (s *DataStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewDataStore()
}

func (s *DataStoreSuite) newItem(code string) *domain.Item {
	ref, err := domain.NewItemRef("EAN", code)
	s.Require().NoError(err)
	item, err := domain.NewItem(ref, "item "+code, time.Now())
	s.Require().NoError(err)
	return item
}

func (s *DataStoreSuite) TestItemVersioning() {
	repo := s.store.Items()

	s.Run("insert assigns version 1 and rejects duplicates", func() {
		item := s.newItem("5000000000001")
		s.Require().NoError(repo.Save(s.ctx, item))
		s.Equal(1, item.Version())

		s.ErrorIs(repo.Save(s.ctx, s.newItem("5000000000001")), domain.ErrDuplicateKey)
	})

	s.Run("stale writer gets optimistic lock error", func() {
		first, err := repo.FindByCode(s.ctx, "5000000000001")
		s.Require().NoError(err)
		second, err := repo.FindByCode(s.ctx, "5000000000001")
		s.Require().NoError(err)

		s.Require().NoError(repo.Save(s.ctx, first))
		s.Equal(2, first.Version())
		s.ErrorIs(repo.Save(s.ctx, second), domain.ErrOptimisticLock)
	})

	s.Run("delete checks version", func() {
		stale, err := repo.FindByCode(s.ctx, "5000000000001")
		s.Require().NoError(err)
		fresh, err := repo.FindByCode(s.ctx, "5000000000001")
		s.Require().NoError(err)
		s.Require().NoError(repo.Save(s.ctx, fresh))

		s.ErrorIs(repo.Delete(s.ctx, stale), domain.ErrOptimisticLock)
		s.Require().NoError(repo.Delete(s.ctx, fresh))
		_, err = repo.FindByCode(s.ctx, "5000000000001")
		s.ErrorIs(err, domain.ErrItemNotFound)
		s.ErrorIs(repo.Delete(s.ctx, fresh), domain.ErrItemNotFound)
	})
}

func (s *DataStoreSuite) TestDocumentsAreCopied() {
	repo := s.store.Items()
	item := s.newItem("0001")
	block, err := domain.NewPricingBlock(decimal.NewFromInt(1), domain.PricingUnit, nil)
	s.Require().NoError(err)
	item.LinkSupplier("acme", block, time.Now())
	s.Require().NoError(repo.Save(s.ctx, item))

	item.UnlinkSupplier("acme", time.Now())

	loaded, err := repo.FindByCode(s.ctx, "0001")
	s.Require().NoError(err)
	s.Len(loaded.Suppliers(), 1, "mutating the caller's copy must not reach the store")
}

func (s *DataStoreSuite) TestListByReference() {
	items, suppliers := s.store.Items(), s.store.Suppliers()
	block, err := domain.NewPricingBlock(decimal.NewFromInt(1), domain.PricingUnit, nil)
	s.Require().NoError(err)

	acme, err := domain.NewSupplier("acme", time.Now())
	s.Require().NoError(err)
	globex, err := domain.NewSupplier("globex", time.Now())
	s.Require().NoError(err)

	a, b := s.newItem("0002"), s.newItem("0001")
	a.LinkSupplier("acme", block, time.Now())
	b.LinkSupplier("acme", block, time.Now())
	acme.LinkItem(a.Link(), block, time.Now())

	for _, it := range []*domain.Item{a, b, s.newItem("0003")} {
		s.Require().NoError(items.Save(s.ctx, it))
	}
	s.Require().NoError(suppliers.Save(s.ctx, acme))
	s.Require().NoError(suppliers.Save(s.ctx, globex))

	linked, err := items.ListBySupplier(s.ctx, "acme")
	s.Require().NoError(err)
	s.Require().Len(linked, 2)
	s.Equal("0001", linked[0].Code())
	s.Equal("0002", linked[1].Code())

	referencing, err := suppliers.ListByItem(s.ctx, "0002")
	s.Require().NoError(err)
	s.Require().Len(referencing, 1)
	s.Equal("acme", referencing[0].Name())

	all, err := suppliers.List(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}
