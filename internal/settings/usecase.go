package settings

import (
	"context"

	"github.com/fekuna/shopsync-service/internal/generator"
)

const (
	NamespaceLabelTemplate  = "label_template"
	NamespaceBarcodePrinter = "barcode_printer"
	NamespacePrinterPreset  = "printer_preset"
	NamespaceSKURules       = "sku_rules"
	NamespaceBarcodeRules   = "barcode_rules"
)

func KnownNamespace(ns string) bool {
	switch ns {
	case NamespaceLabelTemplate, NamespaceBarcodePrinter, NamespacePrinterPreset, NamespaceSKURules, NamespaceBarcodeRules:
		return true
	}
	return false
}

type UseCase interface {
	GetNamespace(ctx context.Context, shopID int64, namespace string) (map[string]string, error)
	SetNamespace(ctx context.Context, shopID int64, namespace string, values map[string]string) error

	// SKURules and BarcodeRules are the shop's default generation rules, used when a run
	// does not bring its own.
	SKURules(ctx context.Context, shopID int64) (generator.SKURules, error)
	BarcodeRules(ctx context.Context, shopID int64) (generator.BarcodeRules, error)
}
