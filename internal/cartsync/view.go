package cartsync

import (
	"github.com/reelcraft/reelcraft/internal/cartapi"

	"github.com/shopspring/decimal"
)

// View 购物车视图；总价始终由行计算
type View struct {
	Lines []Line
}

// Total Σ 数量 × 单价，保留 2 位小数
func (v View) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range v.Lines {
		total = total.Add(line.Subtotal())
	}
	return total.Round(2)
}

// Len 行数
func (v View) Len() int {
	return len(v.Lines)
}

// Clone 深拷贝行切片
func (v View) Clone() View {
	if v.Lines == nil {
		return View{}
	}
	lines := make([]Line, len(v.Lines))
	copy(lines, v.Lines)
	return View{Lines: lines}
}

// LineByProduct 按商品查找行
func (v View) LineByProduct(productID string) (Line, bool) {
	if i := v.indexOfProduct(productID); i >= 0 {
		return v.Lines[i], true
	}
	return Line{}, false
}

// LineByID 按行 ID 查找
func (v View) LineByID(lineID string) (Line, bool) {
	if i := v.indexOfID(lineID); i >= 0 {
		return v.Lines[i], true
	}
	return Line{}, false
}

func (v View) indexOfProduct(productID string) int {
	for i, line := range v.Lines {
		if line.ProductID() == productID {
			return i
		}
	}
	return -1
}

func (v View) indexOfID(lineID string) int {
	for i, line := range v.Lines {
		if line.ID() == lineID {
			return i
		}
	}
	return -1
}

func (v *View) removeAt(i int) {
	v.Lines = append(v.Lines[:i:i], v.Lines[i+1:]...)
}

func (v *View) removeProduct(productID string) {
	if i := v.indexOfProduct(productID); i >= 0 {
		v.removeAt(i)
	}
}

// ViewFromAPI 服务端购物车转视图，重复商品合并为一行
func ViewFromAPI(cart cartapi.Cart) View {
	view := View{Lines: make([]Line, 0, len(cart.Items))}
	for _, item := range cart.Items {
		if item.Quantity <= 0 {
			continue
		}
		if i := view.indexOfProduct(item.Product.ID); i >= 0 {
			view.Lines[i].Quantity += item.Quantity
			continue
		}
		view.Lines = append(view.Lines, Line{
			Ref:      Confirmed{ServerID: item.ID},
			Quantity: item.Quantity,
			Product:  ProductFromAPI(item.Product),
		})
	}
	return view
}

// Persistable 可持久化的接口格式，仅包含已确认行
func (v View) Persistable() cartapi.Cart {
	items := make([]cartapi.CartItem, 0, len(v.Lines))
	confirmed := View{Lines: make([]Line, 0, len(v.Lines))}
	for _, line := range v.Lines {
		ref, ok := line.Ref.(Confirmed)
		if !ok {
			continue
		}
		confirmed.Lines = append(confirmed.Lines, line)
		items = append(items, cartapi.CartItem{
			ID:       ref.ServerID,
			Quantity: line.Quantity,
			Product:  line.Product.API(),
		})
	}
	return cartapi.Cart{Items: items, Total: cartapi.NewPrice(confirmed.Total())}
}
