package wire

import (
	"testing"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/larek/internal/domain/order"
	"github.com/xenking/larek/internal/domain/product"
)

const catalogJSON = `{
  "total": 2,
  "items": [
    {
      "id": "854cef69-976d-4c2a-a18c-2aa45046c390",
      "description": "Если планируете решать задачи в тренажёре, берите два.",
      "image": "/5_Dots.svg",
      "title": "+1 час в сутках",
      "category": "софт-скил",
      "price": 750
    },
    {
      "id": "b06cde61-912f-4663-9751-09956c0eed67",
      "description": "Будет стоять над душой и не давать прокрастинировать.",
      "image": "/Asterisk_2.svg",
      "title": "Мамка-таймер",
      "category": "софт-скил",
      "price": null,
      "extra": {"nested": [1, 2]}
    }
  ]
}`

func TestDecodeProductList(t *testing.T) {
	l, err := DecodeProductList(jx.DecodeStr(catalogJSON))
	require.NoError(t, err)

	assert.Equal(t, 2, l.Total)
	require.Len(t, l.Items, 2)

	first := l.Items[0]
	assert.Equal(t, "854cef69-976d-4c2a-a18c-2aa45046c390", first.ID)
	assert.Equal(t, "/5_Dots.svg", first.Image)
	assert.Equal(t, product.CategorySoft, first.Category)
	assert.True(t, first.Price.Valid)
	assert.True(t, decimal.NewFromInt(750).Equal(first.Price.Decimal))

	assert.False(t, l.Items[1].Price.Valid)
	assert.False(t, l.Items[1].Purchasable())
}

func TestDecodeProductList_Invalid(t *testing.T) {
	_, err := DecodeProductList(jx.DecodeStr(`{"items": [{"price": "abc"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 0")
}

func TestProductList_EncodeDecode(t *testing.T) {
	items := []product.Product{
		{ID: "p1", Title: "One", Category: product.CategoryHard, Price: product.Priced(100)},
		{ID: "p2", Title: "Two", Category: product.CategoryOther},
	}

	e := &jx.Encoder{}
	EncodeProductList(e, items)

	l, err := DecodeProductList(jx.DecodeBytes(e.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, l.Total)
	assert.Equal(t, "p1", l.Items[0].ID)
	assert.True(t, decimal.NewFromInt(100).Equal(l.Items[0].Price.Decimal))
	assert.False(t, l.Items[1].Price.Valid)
}

func TestEncodeOrder(t *testing.T) {
	e := &jx.Encoder{}
	EncodeOrder(e, order.Draft{
		Payment: order.PaymentCard,
		Email:   "a@b.c",
		Phone:   "+71234567890",
		Address: "Main St",
		Total:   decimal.NewFromInt(2200),
		Items:   []string{"p1", "p2"},
	})

	assert.JSONEq(t, `{
		"payment": "card",
		"email": "a@b.c",
		"phone": "+71234567890",
		"address": "Main St",
		"total": 2200,
		"items": ["p1", "p2"]
	}`, e.String())
}

func TestDecodeOrder(t *testing.T) {
	o, err := DecodeOrder(jx.DecodeStr(`{
		"payment": "online",
		"email": null,
		"phone": "+7",
		"address": "x",
		"total": 10.5,
		"items": []
	}`))
	require.NoError(t, err)

	assert.Equal(t, order.PaymentMethod("online"), o.Payment)
	assert.Empty(t, o.Email)
	assert.True(t, decimal.RequireFromString("10.5").Equal(o.Total))
	assert.NotNil(t, o.Items)
	assert.Empty(t, o.Items)
}

func TestResult(t *testing.T) {
	tests := []struct {
		name string
		in   order.Result
		json string
	}{
		{
			name: "success",
			in:   order.Result{ID: "X", Total: decimal.NewFromInt(100)},
			json: `{"id":"X","total":100}`,
		},
		{
			name: "rejected",
			in:   order.Result{Error: "Не указан адрес"},
			json: `{"error":"Не указан адрес"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &jx.Encoder{}
			EncodeResult(e, tt.in)
			assert.JSONEq(t, tt.json, e.String())

			got, err := DecodeResult(jx.DecodeBytes(e.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, tt.in.ID, got.ID)
			assert.Equal(t, tt.in.Error, got.Error)
			assert.True(t, tt.in.Total.Equal(got.Total))
		})
	}
}

func TestDecodeResult_StringTotal(t *testing.T) {
	r, err := DecodeResult(jx.DecodeStr(`{"id":"X","total":"42"}`))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(42).Equal(r.Total))
}
