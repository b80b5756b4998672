// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/yashastest/wybe-engine/internal/storage"
	"github.com/yashastest/wybe-engine/internal/storage/models"
	"github.com/yashastest/wybe-engine/internal/types"
)

// gormLogger bridges GORM's logger.Interface onto zap.
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger: zapLogger,
		logLevel:  logger.Warn,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
		return
	}

	if l.logLevel >= logger.Info {
		l.zapLogger.Info("trace", fields...)
	}
}

// postgresStorage implements the Storage interface on GORM/Postgres.
type postgresStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStorage(dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	gormLogger := newGormLogger(zapLogger.Named("gorm"))

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &postgresStorage{
		db:     db,
		logger: zapLogger,
	}, nil
}

func (p *postgresStorage) RunMigrations() error {
	// Advisory lock so concurrent instances don't race the migration.
	var lockObtained bool
	err := p.db.Raw("SELECT pg_try_advisory_lock(204)").Scan(&lockObtained).Error
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return fmt.Errorf("another migration is in progress")
	}
	defer p.db.Exec("SELECT pg_advisory_unlock(204)")

	err = p.db.AutoMigrate(
		&models.Token{},
		&models.Holder{},
		&models.Trade{},
		&models.FeeLedgerEntry{},
		&models.RewardState{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (p *postgresStorage) SaveToken(ctx context.Context, token *types.Token) error {
	var row models.Token
	row.FromDomain(token)
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

func (p *postgresStorage) LoadToken(ctx context.Context, symbol string) (*types.Token, error) {
	var row models.Token
	err := p.db.WithContext(ctx).Where("symbol = ?", symbol).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", types.ErrTokenNotFound, symbol)
	}
	if err != nil {
		return nil, err
	}
	token := row.ToDomain()
	return &token, nil
}

func (p *postgresStorage) ListTokens(ctx context.Context) ([]types.Token, error) {
	var rows []models.Token
	if err := p.db.WithContext(ctx).Order("symbol").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Token, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

func (p *postgresStorage) SaveHolder(ctx context.Context, holder *types.Holder) error {
	var row models.Holder
	row.FromDomain(holder)
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_symbol"}, {Name: "wallet"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
		}).
		Create(&row).Error
}

func (p *postgresStorage) LoadHolder(ctx context.Context, symbol, wallet string) (*types.Holder, error) {
	var row models.Holder
	err := p.db.WithContext(ctx).
		Where("token_symbol = ? AND wallet = ?", symbol, wallet).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Unknown wallets hold zero; not an error.
		return &types.Holder{TokenSymbol: symbol, Wallet: wallet}, nil
	}
	if err != nil {
		return nil, err
	}
	holder := row.ToDomain()
	return &holder, nil
}

func (p *postgresStorage) ListHolders(ctx context.Context, symbol string) ([]types.Holder, error) {
	var rows []models.Holder
	err := p.db.WithContext(ctx).
		Where("token_symbol = ? AND balance > 0", symbol).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]types.Holder, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

func (p *postgresStorage) AppendTrade(ctx context.Context, trade *types.Trade) error {
	var row models.Trade
	row.FromDomain(trade)
	return p.db.WithContext(ctx).Create(&row).Error
}

func (p *postgresStorage) ListTrades(ctx context.Context, symbol string, limit, offset int) ([]types.Trade, error) {
	var rows []models.Trade
	err := p.db.WithContext(ctx).
		Where("token_symbol = ?", symbol).
		Order("executed_at desc").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]types.Trade, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

func (p *postgresStorage) SaveFeeLedgerEntry(ctx context.Context, entry *types.FeeLedgerEntry) error {
	var row models.FeeLedgerEntry
	row.FromDomain(entry)
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_symbol"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

func (p *postgresStorage) LoadFeeLedgerEntry(ctx context.Context, symbol string) (*types.FeeLedgerEntry, error) {
	var row models.FeeLedgerEntry
	err := p.db.WithContext(ctx).Where("token_symbol = ?", symbol).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &types.FeeLedgerEntry{TokenSymbol: symbol}, nil
	}
	if err != nil {
		return nil, err
	}
	entry := row.ToDomain()
	return &entry, nil
}

func (p *postgresStorage) SaveRewardState(ctx context.Context, state *types.RewardState) error {
	var row models.RewardState
	row.FromDomain(state)
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_symbol"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

func (p *postgresStorage) LoadRewardState(ctx context.Context, symbol string) (*types.RewardState, error) {
	var row models.RewardState
	err := p.db.WithContext(ctx).Where("token_symbol = ?", symbol).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no reward state for %q", types.ErrTokenNotFound, symbol)
	}
	if err != nil {
		return nil, err
	}
	state := row.ToDomain()
	return &state, nil
}

func (p *postgresStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
