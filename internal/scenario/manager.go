// internal/scenario/manager.go
package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/yashastest/wybe-engine/internal/types"
)

// Manager loads and parses scenario definitions.
type Manager struct {
	logger *zap.Logger
}

// OperationType names one scripted step.
type OperationType string

const (
	OperationMint       OperationType = "mint"
	OperationBuy        OperationType = "buy"
	OperationBuyBudget  OperationType = "buy_budget"
	OperationSell       OperationType = "sell"
	OperationSwap       OperationType = "swap"
	OperationClaim      OperationType = "claim"
	OperationFreeze     OperationType = "freeze"
	OperationUnfreeze   OperationType = "unfreeze"
	OperationUpdateFees OperationType = "update_fees"
)

// fileSchema is the raw YAML structure of a scenario file.
type fileSchema struct {
	Tokens []struct {
		Symbol           string `yaml:"symbol"`
		Name             string `yaml:"name"`
		Authority        string `yaml:"authority"`
		Curve            string `yaml:"curve"`
		BasePrice        string `yaml:"base_price"`
		ScaleFactor      string `yaml:"scale_factor"`
		InflectionSupply string `yaml:"inflection_supply"`
		CreatorFeeBps    uint32 `yaml:"creator_fee_bps"`
		PlatformFeeBps   uint32 `yaml:"platform_fee_bps"`
	} `yaml:"tokens"`
	Steps []struct {
		Token          string `yaml:"token"`
		Operation      string `yaml:"operation"`
		Wallet         string `yaml:"wallet"`
		Counterparty   string `yaml:"counterparty"`
		Amount         uint64 `yaml:"amount"`
		Budget         string `yaml:"budget"`
		Price          string `yaml:"price"`
		CreatorFeeBps  uint32 `yaml:"creator_fee_bps"`
		PlatformFeeBps uint32 `yaml:"platform_fee_bps"`
	} `yaml:"steps"`
}

// TokenLaunch is one validated token definition from a scenario.
type TokenLaunch struct {
	Symbol           string
	Name             string
	Authority        string
	CurveType        types.CurveType
	BasePrice        decimal.Decimal
	ScaleFactor      decimal.Decimal
	InflectionSupply decimal.Decimal
	CreatorFeeBps    uint32
	PlatformFeeBps   uint32
}

// Step is one validated scripted operation.
type Step struct {
	Token          string
	Operation      OperationType
	Wallet         string
	Counterparty   string
	Amount         uint64
	Budget         decimal.Decimal
	Price          decimal.Decimal
	CreatorFeeBps  uint32
	PlatformFeeBps uint32
}

// Scenario is a parsed scenario file.
type Scenario struct {
	Tokens []TokenLaunch
	Steps  []Step
}

// NewManager constructs a Manager with the given logger.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger.Named("scenario")}
}

func parseOperation(s string) (OperationType, error) {
	op := OperationType(s)
	switch op {
	case OperationMint, OperationBuy, OperationBuyBudget, OperationSell,
		OperationSwap, OperationClaim, OperationFreeze, OperationUnfreeze,
		OperationUpdateFees:
		return op, nil
	default:
		return "", fmt.Errorf("unsupported operation: %q", s)
	}
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// Load reads a scenario from a YAML file. Invalid steps are skipped with a
// warning; invalid token definitions fail the whole load because later steps
// depend on them.
func (m *Manager) Load(path string) (*Scenario, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var raw fileSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(raw.Tokens) == 0 {
		return nil, fmt.Errorf("no tokens defined in scenario")
	}

	scenario := &Scenario{}
	for _, t := range raw.Tokens {
		curveType, ok := types.ParseCurveType(t.Curve)
		if !ok {
			return nil, fmt.Errorf("token %q: unknown curve %q", t.Symbol, t.Curve)
		}
		basePrice, err := parseDecimal(t.BasePrice)
		if err != nil {
			return nil, fmt.Errorf("token %q: bad base_price: %w", t.Symbol, err)
		}
		scaleFactor, err := parseDecimal(t.ScaleFactor)
		if err != nil {
			return nil, fmt.Errorf("token %q: bad scale_factor: %w", t.Symbol, err)
		}
		inflection, err := parseDecimal(t.InflectionSupply)
		if err != nil {
			return nil, fmt.Errorf("token %q: bad inflection_supply: %w", t.Symbol, err)
		}
		scenario.Tokens = append(scenario.Tokens, TokenLaunch{
			Symbol:           t.Symbol,
			Name:             t.Name,
			Authority:        t.Authority,
			CurveType:        curveType,
			BasePrice:        basePrice,
			ScaleFactor:      scaleFactor,
			InflectionSupply: inflection,
			CreatorFeeBps:    t.CreatorFeeBps,
			PlatformFeeBps:   t.PlatformFeeBps,
		})
	}

	for i, s := range raw.Steps {
		op, err := parseOperation(s.Operation)
		if err != nil {
			m.logger.Warn("Skipping invalid step", zap.Int("step", i), zap.Error(err))
			continue
		}
		if s.Token == "" || s.Wallet == "" {
			m.logger.Warn("Skipping step with missing required fields",
				zap.Int("step", i), zap.String("operation", s.Operation))
			continue
		}
		budget, err := parseDecimal(s.Budget)
		if err != nil {
			m.logger.Warn("Skipping step with bad budget", zap.Int("step", i), zap.Error(err))
			continue
		}
		price, err := parseDecimal(s.Price)
		if err != nil {
			m.logger.Warn("Skipping step with bad price", zap.Int("step", i), zap.Error(err))
			continue
		}
		scenario.Steps = append(scenario.Steps, Step{
			Token:          s.Token,
			Operation:      op,
			Wallet:         s.Wallet,
			Counterparty:   s.Counterparty,
			Amount:         s.Amount,
			Budget:         budget,
			Price:          price,
			CreatorFeeBps:  s.CreatorFeeBps,
			PlatformFeeBps: s.PlatformFeeBps,
		})
	}

	m.logger.Info("Scenario loaded",
		zap.Int("tokens", len(scenario.Tokens)),
		zap.Int("steps", len(scenario.Steps)))
	return scenario, nil
}
