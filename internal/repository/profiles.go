package repository

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"storefront/internal/domain"
)

//go:embed profiles/*.yaml
var profileFS embed.FS

var ErrUnknownProfile = errors.New("unknown storefront profile")

type profileFile struct {
	Name     string `yaml:"name"`
	Currency struct {
		Code   string `yaml:"code"`
		Symbol string `yaml:"symbol"`
		Places int32  `yaml:"places"`
	} `yaml:"currency"`
	FreeShippingThreshold string              `yaml:"free_shipping_threshold"`
	Ingredients           []domain.Ingredient `yaml:"ingredients"`
	Products              []productRecord     `yaml:"products"`
	Assistant             struct {
		Greeting          string `yaml:"greeting"`
		Fallback          string `yaml:"fallback"`
		WrapUp            string `yaml:"wrap_up"`
		SystemInstruction string `yaml:"system_instruction"`
	} `yaml:"assistant"`
}

type productRecord struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Price        string   `yaml:"price"`
	Description  string   `yaml:"description"`
	Image        string   `yaml:"image"`
	TextureImage string   `yaml:"texture_image"`
	Ingredients  []string `yaml:"ingredients"`
	Reviews      int      `yaml:"reviews"`
	Rating       float64  `yaml:"rating"`
	BestSeller   bool     `yaml:"best_seller"`
}

// ProfileNames встроенные витрины
func ProfileNames() []string {
	entries, _ := fs.ReadDir(profileFS, "profiles")
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(out)
	return out
}

// LoadProfile загружает встроенную витрину по имени
func LoadProfile(name string) (*domain.Profile, error) {
	data, err := profileFS.ReadFile("profiles/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return ParseProfile(data)
}

// ParseProfile разбирает и проверяет YAML витрины
func ParseProfile(data []byte) (*domain.Profile, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if f.Name == "" {
		return nil, errors.New("profile: name is required")
	}
	threshold, err := decimal.NewFromString(f.FreeShippingThreshold)
	if err != nil {
		return nil, fmt.Errorf("profile %s: free_shipping_threshold: %w", f.Name, err)
	}

	p := &domain.Profile{
		Name: f.Name,
		Currency: domain.Currency{
			Code:   f.Currency.Code,
			Symbol: f.Currency.Symbol,
			Places: f.Currency.Places,
		},
		FreeShippingThreshold: threshold,
		Assistant: domain.AssistantCopy{
			Greeting:          strings.TrimSpace(f.Assistant.Greeting),
			Fallback:          strings.TrimSpace(f.Assistant.Fallback),
			WrapUp:            strings.TrimSpace(f.Assistant.WrapUp),
			SystemInstruction: strings.TrimSpace(f.Assistant.SystemInstruction),
		},
	}

	glossary := make(map[string]domain.Ingredient, len(f.Ingredients))
	for _, ing := range f.Ingredients {
		if ing.Name == "" {
			return nil, fmt.Errorf("profile %s: ingredient without name", f.Name)
		}
		if _, dup := glossary[ing.Name]; dup {
			return nil, fmt.Errorf("profile %s: duplicate ingredient %q", f.Name, ing.Name)
		}
		glossary[ing.Name] = ing
		p.Ingredients = append(p.Ingredients, ing)
	}

	seen := make(map[string]bool, len(f.Products))
	for _, r := range f.Products {
		prod, err := r.toProduct(glossary)
		if err != nil {
			return nil, fmt.Errorf("profile %s: product %q: %w", f.Name, r.ID, err)
		}
		if seen[prod.ID] {
			return nil, fmt.Errorf("profile %s: duplicate product id %q", f.Name, prod.ID)
		}
		seen[prod.ID] = true
		p.Products = append(p.Products, prod)
	}
	return p, nil
}

func (r productRecord) toProduct(glossary map[string]domain.Ingredient) (domain.Product, error) {
	if r.ID == "" || r.Name == "" {
		return domain.Product{}, errors.New("id and name are required")
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("price: %w", err)
	}
	if !price.IsPositive() {
		return domain.Product{}, errors.New("price must be positive")
	}
	if r.Reviews < 0 {
		return domain.Product{}, errors.New("reviews must be non-negative")
	}
	// rating in half points between 0 and 5
	if r.Rating < 0 || r.Rating > 5 || math.Mod(r.Rating*2, 1) != 0 {
		return domain.Product{}, fmt.Errorf("invalid rating %v", r.Rating)
	}
	prod := domain.Product{
		ID:           r.ID,
		Name:         r.Name,
		Price:        price,
		Description:  r.Description,
		Image:        r.Image,
		TextureImage: r.TextureImage,
		Reviews:      r.Reviews,
		Rating:       r.Rating,
		BestSeller:   r.BestSeller,
		Ingredients:  make([]domain.Ingredient, 0, len(r.Ingredients)),
	}
	for _, name := range r.Ingredients {
		ing, ok := glossary[name]
		if !ok {
			return domain.Product{}, fmt.Errorf("unknown ingredient %q", name)
		}
		prod.Ingredients = append(prod.Ingredients, ing)
	}
	return prod, nil
}
