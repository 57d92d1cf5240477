package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/diewo77/pureclean/internal/models"
)

// orderLineID returns the single line of a freshly placed order.
func (s *shop) orderLineID(t *testing.T, o *models.Order) uint {
	t.Helper()
	var line models.OrderLine
	require.NoError(t, s.db.Where("order_id = ?", o.ID).First(&line).Error)
	return line.ID
}

func TestStockStatusEndToEnd(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	m := s.material(t, "Solvent", "5")
	sup := s.supplier(t, "ChemCo")

	assert.Equal(t, models.StockNeedsOrder, m.StockStatus())

	_, err := s.inventory.RecordSupply(ctx, SupplyInput{MaterialID: m.ID, SupplierID: sup.ID, Quantity: dec("20"), UnitPrice: dec("3.50")})
	require.NoError(t, err)

	got, err := s.materials.GetMaterial(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, dec("25").Equal(got.QuantityInStock), "stock = %s", got.QuantityInStock)
	assert.Equal(t, models.StockSufficient, got.StockStatus())
}

func TestRecordSupplyValidation(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	m := s.material(t, "Solvent", "5")
	sup := s.supplier(t, "ChemCo")

	_, err := s.inventory.RecordSupply(ctx, SupplyInput{MaterialID: m.ID, SupplierID: sup.ID, Quantity: dec("0"), UnitPrice: dec("1")})
	requireKind(t, err, KindValidation)
	_, err = s.inventory.RecordSupply(ctx, SupplyInput{MaterialID: m.ID, SupplierID: 999, Quantity: dec("1"), UnitPrice: dec("1")})
	requireKind(t, err, KindNotFound)
	assert.True(t, dec("5").Equal(s.stock(t, m.ID)))
}

func TestRecordUsageInsufficientStock(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	o, _ := s.placedOrder(t)
	lineID := s.orderLineID(t, o)
	m := s.material(t, "Solvent", "5")

	_, err := s.inventory.RecordUsage(ctx, UsageInput{MaterialID: m.ID, OrderLineID: lineID, Quantity: dec("5.001")})
	requireKind(t, err, KindInsufficientStock)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.True(t, dec("5").Equal(e.Available))
	assert.True(t, dec("5").Equal(s.stock(t, m.ID)), "stock unchanged")

	var usages int64
	s.db.Model(&models.MaterialUsage{}).Count(&usages)
	assert.Zero(t, usages)

	_, err = s.inventory.RecordUsage(ctx, UsageInput{MaterialID: m.ID, OrderLineID: lineID, Quantity: dec("5")})
	require.NoError(t, err)
	assert.True(t, s.stock(t, m.ID).IsZero())
}

func TestFractionalStockConsumedExactly(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	o, _ := s.placedOrder(t)
	lineID := s.orderLineID(t, o)
	m := s.material(t, "Stain remover", "0")
	sup := s.supplier(t, "ChemCo")

	for range 3 {
		_, err := s.inventory.RecordSupply(ctx, SupplyInput{MaterialID: m.ID, SupplierID: sup.ID, Quantity: dec("0.1"), UnitPrice: dec("2")})
		require.NoError(t, err)
	}
	assert.True(t, dec("0.3").Equal(s.stock(t, m.ID)), "stock = %s", s.stock(t, m.ID))

	_, err := s.inventory.RecordUsage(ctx, UsageInput{MaterialID: m.ID, OrderLineID: lineID, Quantity: dec("0.3")})
	require.NoError(t, err)

	got, err := s.materials.GetMaterial(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.QuantityInStock.IsZero(), "stock = %s", got.QuantityInStock)
	assert.Equal(t, models.StockOutOfStock, got.StockStatus())
}

func TestRecordUsageClosedOrder(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	o, _ := s.placedOrder(t)
	lineID := s.orderLineID(t, o)
	m := s.material(t, "Solvent", "5")

	_, err := s.orders.ChangeStatus(ctx, o.ID, models.OrderStatusCancelled, nil)
	require.NoError(t, err)
	_, err = s.inventory.RecordUsage(ctx, UsageInput{MaterialID: m.ID, OrderLineID: lineID, Quantity: dec("1")})
	requireKind(t, err, KindValidation)
	assert.True(t, dec("5").Equal(s.stock(t, m.ID)))
}

func TestUpdateUsageAppliesDifference(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	o, _ := s.placedOrder(t)
	lineID := s.orderLineID(t, o)
	m := s.material(t, "Solvent", "10")

	use, err := s.inventory.RecordUsage(ctx, UsageInput{MaterialID: m.ID, OrderLineID: lineID, Quantity: dec("4")})
	require.NoError(t, err)
	require.True(t, dec("6").Equal(s.stock(t, m.ID)))

	// A=4 -> B=1 changes stock by A-B=+3
	_, err = s.inventory.UpdateUsage(ctx, use.ID, UsageInput{Quantity: dec("1")})
	require.NoError(t, err)
	assert.True(t, dec("9").Equal(s.stock(t, m.ID)), "stock = %s", s.stock(t, m.ID))

	// A=1 -> B=7 changes stock by -6
	_, err = s.inventory.UpdateUsage(ctx, use.ID, UsageInput{Quantity: dec("7")})
	require.NoError(t, err)
	assert.True(t, dec("3").Equal(s.stock(t, m.ID)))

	// 7 -> 11 needs 4 more with 3 left; the old 7 counts as available
	_, err = s.inventory.UpdateUsage(ctx, use.ID, UsageInput{Quantity: dec("11")})
	requireKind(t, err, KindInsufficientStock)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.True(t, dec("10").Equal(e.Available))
	assert.True(t, dec("3").Equal(s.stock(t, m.ID)))

	_, err = s.inventory.UpdateUsage(ctx, use.ID, UsageInput{MaterialID: m.ID + 1, Quantity: dec("1")})
	requireKind(t, err, KindValidation)

	require.NoError(t, s.inventory.DeleteUsage(ctx, use.ID))
	assert.True(t, dec("10").Equal(s.stock(t, m.ID)))
	requireKind(t, s.inventory.DeleteUsage(ctx, use.ID), KindNotFound)
}

func TestUpdateAndDeleteSupply(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	o, _ := s.placedOrder(t)
	lineID := s.orderLineID(t, o)
	m := s.material(t, "Solvent", "0")
	sup := s.supplier(t, "ChemCo")

	delivery, err := s.inventory.RecordSupply(ctx, SupplyInput{MaterialID: m.ID, SupplierID: sup.ID, Quantity: dec("10"), UnitPrice: dec("2")})
	require.NoError(t, err)

	_, err = s.inventory.UpdateSupply(ctx, delivery.ID, SupplyInput{SupplierID: sup.ID, Quantity: dec("12"), UnitPrice: dec("2")})
	require.NoError(t, err)
	assert.True(t, dec("12").Equal(s.stock(t, m.ID)))

	_, err = s.inventory.RecordUsage(ctx, UsageInput{MaterialID: m.ID, OrderLineID: lineID, Quantity: dec("9")})
	require.NoError(t, err)

	// lowering the delivery to 2 would need 10 back out of 3 on hand
	_, err = s.inventory.UpdateSupply(ctx, delivery.ID, SupplyInput{SupplierID: sup.ID, Quantity: dec("2"), UnitPrice: dec("2")})
	requireKind(t, err, KindInsufficientStock)
	requireKind(t, s.inventory.DeleteSupply(ctx, delivery.ID), KindInsufficientStock)
	assert.True(t, dec("3").Equal(s.stock(t, m.ID)))

	_, err = s.inventory.UpdateSupply(ctx, delivery.ID, SupplyInput{SupplierID: sup.ID, Quantity: dec("9"), UnitPrice: dec("2")})
	require.NoError(t, err)
	assert.True(t, s.stock(t, m.ID).IsZero())

	other := s.material(t, "Detergent", "0")
	_, err = s.inventory.UpdateSupply(ctx, delivery.ID, SupplyInput{MaterialID: other.ID, SupplierID: sup.ID, Quantity: dec("9"), UnitPrice: dec("2")})
	requireKind(t, err, KindValidation)

	list, err := s.inventory.ListSupplies(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ChemCo", list[0].Supplier.Name)

	usages, err := s.inventory.ListUsages(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, usages, 1)
}

func TestDeleteSupplyRestoresStock(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	m := s.material(t, "Solvent", "1")
	sup := s.supplier(t, "ChemCo")
	delivery, err := s.inventory.RecordSupply(ctx, SupplyInput{MaterialID: m.ID, SupplierID: sup.ID, Quantity: dec("4"), UnitPrice: dec("2")})
	require.NoError(t, err)

	require.NoError(t, s.inventory.DeleteSupply(ctx, delivery.ID))
	assert.True(t, dec("1").Equal(s.stock(t, m.ID)))
}

func supplyWorkbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	header := make([]any, len(SupplyImportColumns))
	for i, c := range SupplyImportColumns {
		header[i] = c
	}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportSupplies(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	m := s.material(t, "Solvent", "1")
	sup := s.supplier(t, "ChemCo")

	buf := supplyWorkbook(t,
		[]any{m.ID, sup.ID, "2.5", "3", "2026-02-01", "INV-1"},
		[]any{m.ID, sup.ID, "1,5", "3", "15.02.2026", ""},
	)
	n, err := s.inventory.ImportSupplies(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, dec("5").Equal(s.stock(t, m.ID)), "stock = %s", s.stock(t, m.ID))
}

func TestImportSuppliesAllOrNothing(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	m := s.material(t, "Solvent", "1")
	sup := s.supplier(t, "ChemCo")

	buf := supplyWorkbook(t,
		[]any{m.ID, sup.ID, "2", "3", "", ""},
		[]any{m.ID, 999, "2", "3", "", ""},
	)
	_, err := s.inventory.ImportSupplies(ctx, buf)
	requireKind(t, err, KindValidation)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Contains(t, e.Fields, "row_3")

	var supplies int64
	s.db.Model(&models.MaterialSupply{}).Count(&supplies)
	assert.Zero(t, supplies)
	assert.True(t, dec("1").Equal(s.stock(t, m.ID)))

	buf = supplyWorkbook(t, []any{m.ID, sup.ID, "-2", "3", "", ""})
	_, err = s.inventory.ImportSupplies(ctx, buf)
	require.ErrorAs(t, err, &e)
	assert.Contains(t, e.Fields, "row_2.quantity")

	buf = supplyWorkbook(t, []any{"abc", sup.ID, "2", "3", "", ""})
	_, err = s.inventory.ImportSupplies(ctx, buf)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "bad material_id", e.Fields["row_2"])

	_, err = s.inventory.ImportSupplies(ctx, bytes.NewBufferString("not a workbook"))
	requireKind(t, err, KindValidation)
}
