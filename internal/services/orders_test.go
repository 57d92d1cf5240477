package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/internal/models"
)

func TestConvertEndToEnd(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	sess := s.customer(t, "a@example.com", "+7 900 111-11-11")
	a := s.service(t, "Shirt", "500", nil)
	b := s.service(t, "Dress", "1000", intPtr(20))

	_, err := s.carts.AddItem(ctx, *sess.ClientID, a.ID, 2)
	require.NoError(t, err)
	_, err = s.carts.AddItem(ctx, *sess.ClientID, b.ID, 1)
	require.NoError(t, err)

	tot, err := s.carts.Totals(ctx, *sess.ClientID)
	require.NoError(t, err)
	assert.Equal(t, 3, tot.ItemCount)
	assert.True(t, dec("1800").Equal(tot.Amount))

	o, err := s.orders.Convert(ctx, sess, "  handle with care ")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAccepted, o.Status)
	assert.True(t, dec("1800").Equal(o.TotalAmount))
	assert.True(t, o.Prepayment.IsZero())
	assert.Equal(t, testNow, o.AcceptanceDate)
	assert.Equal(t, testNow.AddDate(0, 0, 7), o.PlannedReturnDate)
	require.NotNil(t, o.Comment)
	assert.Equal(t, "handle with care", *o.Comment)

	got, err := s.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	prices := map[uint]string{}
	for _, l := range got.Lines {
		prices[l.ServiceID] = l.PriceAtOrder.StringFixed(2)
	}
	assert.Equal(t, "500.00", prices[a.ID])
	assert.Equal(t, "800.00", prices[b.ID])

	var carts int64
	s.db.Model(&models.Cart{}).Count(&carts)
	assert.Zero(t, carts)
}

func TestConvertFreezesPrices(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	o, _ := s.placedOrder(t)

	var line models.OrderLine
	require.NoError(t, s.db.Where("order_id = ?", o.ID).First(&line).Error)
	svc, err := s.catalog.GetService(ctx, line.ServiceID)
	require.NoError(t, err)
	_, err = s.catalog.UpdateService(ctx, svc.ID, ServiceInput{
		Name: svc.Name, CategoryID: svc.CategoryID, BasePrice: dec("5000"), ExecutionTimeHours: 24,
	})
	require.NoError(t, err)

	got, err := s.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, dec("1000").Equal(got.Lines[0].PriceAtOrder))
	assert.True(t, dec("1000").Equal(got.TotalAmount))
}

func TestConvertEmptyCart(t *testing.T) {
	s := newShop(t)
	sess := s.customer(t, "a@example.com", "+7 900 111-11-11")
	_, err := s.orders.Convert(context.Background(), sess, "")
	assert.True(t, errors.Is(err, ErrEmptyCart), "got %v", err)
}

func TestConvertGuest(t *testing.T) {
	s := newShop(t)
	_, err := s.orders.Convert(context.Background(), auth.Guest, "")
	requireKind(t, err, KindUnauthorized)
}

func TestConvertRemovedService(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	sess := s.customer(t, "a@example.com", "+7 900 111-11-11")
	a := s.service(t, "Shirt", "500", nil)
	_, err := s.carts.AddItem(ctx, *sess.ClientID, a.ID, 1)
	require.NoError(t, err)
	require.NoError(t, s.catalog.DeleteService(ctx, a.ID))

	_, err = s.orders.Convert(ctx, sess, "")
	requireKind(t, err, KindNotFound)

	var orders int64
	s.db.Model(&models.Order{}).Count(&orders)
	assert.Zero(t, orders)
	v, err := s.carts.View(ctx, *sess.ClientID)
	require.NoError(t, err)
	assert.Len(t, v.Items, 1, "cart survives a failed checkout")
}

func TestConvertIsAtomic(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	sess := s.customer(t, "a@example.com", "+7 900 111-11-11")
	a := s.service(t, "Shirt", "500", nil)
	b := s.service(t, "Dress", "1000", nil)
	_, err := s.carts.AddItem(ctx, *sess.ClientID, a.ID, 1)
	require.NoError(t, err)
	_, err = s.carts.AddItem(ctx, *sess.ClientID, b.ID, 1)
	require.NoError(t, err)

	created := 0
	err = s.db.Callback().Create().Before("gorm:create").Register("test:fail_second_line", func(tx *gorm.DB) {
		if tx.Statement.Table != "order_lines" {
			return
		}
		created++
		if created == 2 {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	_, err = s.orders.Convert(ctx, sess, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NoError(t, s.db.Callback().Create().Remove("test:fail_second_line"))

	var orders, lines, carts int64
	s.db.Model(&models.Order{}).Count(&orders)
	s.db.Model(&models.OrderLine{}).Count(&lines)
	s.db.Model(&models.Cart{}).Count(&carts)
	assert.Zero(t, orders)
	assert.Zero(t, lines)
	assert.Equal(t, int64(1), carts)

	tot, err := s.carts.Totals(ctx, *sess.ClientID)
	require.NoError(t, err)
	assert.Equal(t, 2, tot.ItemCount)
}

func TestChangeStatusWorkflow(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	o, _ := s.placedOrder(t)

	for _, st := range []models.OrderStatus{models.OrderStatusInProgress, models.OrderStatusReady} {
		got, err := s.orders.ChangeStatus(ctx, o.ID, st, nil)
		require.NoError(t, err)
		assert.Equal(t, st, got.Status)
		assert.Nil(t, got.ActualReturnDate)
	}

	_, err := s.orders.ChangeStatus(ctx, o.ID, models.OrderStatusAccepted, nil)
	requireKind(t, err, KindInvalidTransition)

	note := "picked up by spouse"
	got, err := s.orders.ChangeStatus(ctx, o.ID, models.OrderStatusDelivered, &note)
	require.NoError(t, err)
	require.NotNil(t, got.ActualReturnDate)
	assert.Equal(t, testNow, *got.ActualReturnDate)

	reloaded, err := s.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, reloaded.Status)
	require.NotNil(t, reloaded.Comment)
	assert.Equal(t, note, *reloaded.Comment)

	_, err = s.orders.ChangeStatus(ctx, o.ID, models.OrderStatusCancelled, nil)
	requireKind(t, err, KindInvalidTransition)
	_, err = s.orders.ChangeStatus(ctx, o.ID, models.OrderStatusDelivered, &note)
	requireKind(t, err, KindInvalidTransition)
}

func TestChangeStatusSkipAndCancel(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	o, _ := s.placedOrder(t)

	_, err := s.orders.ChangeStatus(ctx, o.ID, models.OrderStatusReady, nil)
	requireKind(t, err, KindInvalidTransition)

	_, err = s.orders.ChangeStatus(ctx, o.ID, "lost", nil)
	requireKind(t, err, KindValidation)

	_, err = s.orders.ChangeStatus(ctx, 999, models.OrderStatusInProgress, nil)
	requireKind(t, err, KindNotFound)

	note := "  updated  "
	got, err := s.orders.ChangeStatus(ctx, o.ID, models.OrderStatusAccepted, &note)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAccepted, got.Status)
	assert.Equal(t, "updated", *got.Comment)

	got, err = s.orders.ChangeStatus(ctx, o.ID, models.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	assert.Nil(t, got.ActualReturnDate)
}

func TestSetPrepayment(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	o, _ := s.placedOrder(t)

	got, err := s.orders.SetPrepayment(ctx, o.ID, dec("300"))
	require.NoError(t, err)
	assert.True(t, dec("700").Equal(got.Balance()))

	_, err = s.orders.SetPrepayment(ctx, o.ID, dec("1000.01"))
	requireKind(t, err, KindValidation)
	_, err = s.orders.SetPrepayment(ctx, o.ID, dec("-1"))
	requireKind(t, err, KindValidation)

	_, err = s.orders.ChangeStatus(ctx, o.ID, models.OrderStatusCancelled, nil)
	require.NoError(t, err)
	_, err = s.orders.SetPrepayment(ctx, o.ID, dec("100"))
	requireKind(t, err, KindInvalidTransition)
}

func TestOrderListAndSummary(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	o, sess := s.placedOrder(t)
	s.material(t, "Solvent", "5")
	s.material(t, "Hangers", "100")

	mine, err := s.orders.ListForClient(ctx, *sess.ClientID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, o.ID, mine[0].ID)

	accepted, err := s.orders.List(ctx, OrderFilter{Status: models.OrderStatusAccepted})
	require.NoError(t, err)
	assert.Len(t, accepted, 1)
	ready, err := s.orders.List(ctx, OrderFilter{Status: models.OrderStatusReady})
	require.NoError(t, err)
	assert.Empty(t, ready)

	for _, st := range []models.OrderStatus{models.OrderStatusInProgress, models.OrderStatusReady, models.OrderStatusDelivered} {
		_, err := s.orders.ChangeStatus(ctx, o.ID, st, nil)
		require.NoError(t, err)
	}
	sum, err := s.orders.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.ByStatus[models.OrderStatusDelivered])
	assert.True(t, dec("1000").Equal(sum.Revenue))
	require.Len(t, sum.Restock, 1)
	assert.Equal(t, "Solvent", sum.Restock[0].Name)
}

func TestSetLineItemType(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	o, _ := s.placedOrder(t)
	lineID := s.orderLineID(t, o)
	coat, err := s.catalog.CreateItemType(ctx, ItemTypeInput{Name: "Coat", Material: "Wool"})
	require.NoError(t, err)

	line, err := s.orders.SetLineItemType(ctx, lineID, &coat.ID)
	require.NoError(t, err)
	require.NotNil(t, line.ItemTypeID)
	assert.Equal(t, coat.ID, *line.ItemTypeID)

	got, err := s.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	require.NotNil(t, got.Lines[0].ItemType)
	assert.Equal(t, "Coat", got.Lines[0].ItemType.Name)
	assert.True(t, dec("1000").Equal(got.Lines[0].PriceAtOrder))

	missing := uint(999)
	_, err = s.orders.SetLineItemType(ctx, lineID, &missing)
	requireKind(t, err, KindNotFound)
	_, err = s.orders.SetLineItemType(ctx, 999, &coat.ID)
	requireKind(t, err, KindNotFound)

	_, err = s.orders.ChangeStatus(ctx, o.ID, models.OrderStatusCancelled, nil)
	require.NoError(t, err)
	_, err = s.orders.SetLineItemType(ctx, lineID, nil)
	requireKind(t, err, KindInvalidTransition)
}
