package usecase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/generator"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/settings"
	"go.uber.org/zap"
)

type settingsUseCase struct {
	repo   settings.Repository
	logger logger.ZapLogger
}

func NewSettingsUseCase(repo settings.Repository, log logger.ZapLogger) settings.UseCase {
	return &settingsUseCase{
		repo:   repo,
		logger: log,
	}
}

func (uc *settingsUseCase) GetNamespace(ctx context.Context, shopID int64, namespace string) (map[string]string, error) {
	if !settings.KnownNamespace(namespace) {
		return nil, fmt.Errorf("unknown settings namespace %q: %w", namespace, apperr.ErrInvalidInput)
	}
	rows, err := uc.repo.FindNamespace(ctx, shopID, namespace)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	return values, nil
}

func (uc *settingsUseCase) SetNamespace(ctx context.Context, shopID int64, namespace string, values map[string]string) error {
	if !settings.KnownNamespace(namespace) {
		return fmt.Errorf("unknown settings namespace %q: %w", namespace, apperr.ErrInvalidInput)
	}
	if err := uc.checkRules(ctx, shopID, namespace, values); err != nil {
		return err
	}
	for key, value := range values {
		if value == "" {
			if err := uc.repo.Delete(ctx, shopID, namespace, key); err != nil {
				return err
			}
			continue
		}
		err := uc.repo.Put(ctx, &model.Setting{ShopID: shopID, Namespace: namespace, Key: key, Value: value})
		if err != nil {
			return err
		}
	}
	return nil
}

// DefaultSKURules apply to shops that never saved any.
func DefaultSKURules() generator.SKURules {
	return generator.SKURules{Prefix: "SKU", Delimiter: "-", AutoStart: "0001"}
}

func DefaultBarcodeRules() generator.BarcodeRules {
	return generator.BarcodeRules{Format: generator.FormatEAN13, AutoFill: true}
}

func (uc *settingsUseCase) SKURules(ctx context.Context, shopID int64) (generator.SKURules, error) {
	values, err := uc.GetNamespace(ctx, shopID, settings.NamespaceSKURules)
	if err != nil {
		return DefaultSKURules(), err
	}
	rules := uc.skuRules(values)
	if err := rules.Validate(); err != nil {
		return rules, fmt.Errorf("stored sku rules of shop %d: %w", shopID, err)
	}
	return rules, nil
}

func (uc *settingsUseCase) BarcodeRules(ctx context.Context, shopID int64) (generator.BarcodeRules, error) {
	values, err := uc.GetNamespace(ctx, shopID, settings.NamespaceBarcodeRules)
	if err != nil {
		return DefaultBarcodeRules(), err
	}
	rules := uc.barcodeRules(values)
	if err := rules.Validate(); err != nil {
		return rules, fmt.Errorf("stored barcode rules of shop %d: %w", shopID, err)
	}
	return rules, nil
}

// checkRules rejects an update that would leave a rules namespace unusable.
func (uc *settingsUseCase) checkRules(ctx context.Context, shopID int64, namespace string, update map[string]string) error {
	if namespace != settings.NamespaceSKURules && namespace != settings.NamespaceBarcodeRules {
		return nil
	}
	merged, err := uc.GetNamespace(ctx, shopID, namespace)
	if err != nil {
		return err
	}
	for key, value := range update {
		if value == "" {
			delete(merged, key)
			continue
		}
		merged[key] = value
	}

	if namespace == settings.NamespaceSKURules {
		err = uc.skuRules(merged).Validate()
	} else {
		err = uc.barcodeRules(merged).Validate()
	}
	if err != nil {
		return fmt.Errorf("%s: %s: %w", namespace, err.Error(), apperr.ErrInvalidInput)
	}
	return nil
}

func (uc *settingsUseCase) skuRules(values map[string]string) generator.SKURules {
	rules := DefaultSKURules()
	if v, ok := values["prefix"]; ok {
		rules.Prefix = v
	}
	if v, ok := values["delimiter"]; ok {
		rules.Delimiter = v
	}
	if v, ok := values["suffix"]; ok {
		rules.Suffix = v
	}
	if v, ok := values["auto_start"]; ok {
		rules.AutoStart = v
	}
	rules.RemoveSpaces = uc.flag(values, "remove_spaces", rules.RemoveSpaces)
	rules.PerProduct = uc.flag(values, "per_product", rules.PerProduct)
	return rules
}

func (uc *settingsUseCase) barcodeRules(values map[string]string) generator.BarcodeRules {
	rules := DefaultBarcodeRules()
	if v, ok := values["format"]; ok {
		rules.Format = v
	}
	if v, ok := values["prefix"]; ok {
		rules.Prefix = v
	}
	if v, ok := values["auto_start"]; ok {
		rules.AutoStart = v
	}
	rules.AutoFill = uc.flag(values, "auto_fill", rules.AutoFill)
	rules.AllowFreeTextQR = uc.flag(values, "allow_free_text_qr", rules.AllowFreeTextQR)
	rules.PerProduct = uc.flag(values, "per_product", rules.PerProduct)
	rules.Normalize()
	return rules
}

func (uc *settingsUseCase) flag(values map[string]string, key string, fallback bool) bool {
	v, ok := values[key]
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		uc.logger.Warn("ignoring non-boolean setting", zap.String("key", key), zap.String("value", v))
		return fallback
	}
	return b
}
