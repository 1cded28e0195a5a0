package domain

import (
	"strings"
	"sync"

	"github.com/gosimple/slug"
)

// Category classifies a cost line.
type Category string

const (
	CategoryMaterial    Category = "material"
	CategoryLabor       Category = "labor"
	CategoryEquipment   Category = "equipment"
	CategorySubcontract Category = "subcontract"
	CategoryTransport   Category = "transport"
	CategoryOverhead    Category = "overhead"
	CategoryOther       Category = "other"
)

type CategoryInfo struct {
	Code  Category `json:"code"`
	Label string   `json:"label"`
}

type categoryRegistry struct {
	mu      sync.RWMutex
	ordered []CategoryInfo
	known   map[Category]struct{}
	aliases map[string]Category
}

var categories = newCategoryRegistry()

func newCategoryRegistry() *categoryRegistry {
	r := &categoryRegistry{
		known:   make(map[Category]struct{}),
		aliases: make(map[string]Category),
	}
	r.register(CategoryMaterial, "Materials", "materials", "vat-tu", "vat-lieu")
	r.register(CategoryLabor, "Labor", "labour", "nhan-cong", "wages")
	r.register(CategoryEquipment, "Equipment", "machinery", "thiet-bi", "may-moc")
	r.register(CategorySubcontract, "Subcontract", "subcontractor", "thau-phu")
	r.register(CategoryTransport, "Transport", "transportation", "shipping", "van-chuyen")
	r.register(CategoryOverhead, "Overhead", "general", "chi-phi-chung")
	r.register(CategoryOther, "Other", "misc", "khac")
	return r
}

func (r *categoryRegistry) register(code Category, label string, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.known[code]; !ok {
		r.known[code] = struct{}{}
		r.ordered = append(r.ordered, CategoryInfo{Code: code, Label: label})
	}
	for _, alias := range aliases {
		r.aliases[slug.Make(alias)] = code
	}
}

// RegisterCategory adds a category, or further aliases for an existing one.
// Call it during start-up, before serving requests.
func RegisterCategory(code Category, label string, aliases ...string) {
	code = Category(slug.Make(string(code)))
	if code == "" {
		return
	}
	if strings.TrimSpace(label) == "" {
		label = string(code)
	}
	categories.register(code, label, aliases...)
}

// ParseCategory maps free-form input (any case, spacing or diacritics) to a
// known category.
func ParseCategory(raw string) (Category, bool) {
	key := slug.Make(raw)
	if key == "" {
		return "", false
	}

	categories.mu.RLock()
	defer categories.mu.RUnlock()

	if _, ok := categories.known[Category(key)]; ok {
		return Category(key), true
	}
	if code, ok := categories.aliases[key]; ok {
		return code, true
	}
	return "", false
}

// Categories lists the known categories in registration order.
func Categories() []CategoryInfo {
	categories.mu.RLock()
	defer categories.mu.RUnlock()

	out := make([]CategoryInfo, len(categories.ordered))
	copy(out, categories.ordered)
	return out
}
