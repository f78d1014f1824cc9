package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"shop-orders-service/internal/model"
)

// Reglas de negocio de tipo regulatorio: con nombre porque van a cambiar.
// El arancel aduanero aplica solo si el subtotal supera el umbral.
const CustomsThresholdMinor int64 = 30000 // 300.00 en unidades mayores

// CustomsTariffRate es 18%. decimal no permite const, por eso var.
var CustomsTariffRate = decimal.New(18, -2)

type EstimateResult struct {
	ShippingCostMinor     int64
	CustomsTariffMinor    int64
	EstimatedDeliveryDate time.Time
}

// Estimate es una función pura: sin I/O ni efectos, determinista dados los
// inputs y el registro del método de entrega. Se usa al checkout y puede
// re-aplicarse después, cuando se conoce el peso real.
//
// Todo el dinero es entero en unidades menores; decimal solo se usa para el
// redondeo intermedio, nunca float.
func Estimate(method *model.DeliveryMethod, weightKg float64, subtotalMinor int64, now time.Time) (EstimateResult, error) {
	if method == nil || method.Code == "" {
		return EstimateResult{}, fmt.Errorf("%w: falta el método de entrega", ErrValidation)
	}
	if weightKg < 0 {
		return EstimateResult{}, fmt.Errorf("%w: el peso no puede ser negativo", ErrValidation)
	}
	if method.PricePerKgMinor < 0 {
		return EstimateResult{}, fmt.Errorf("%w: precio por kg inválido en %s", ErrValidation, method.Code)
	}

	// shippingCost = round(pricePerKg * peso), al entero menor más cercano
	shipping := decimal.NewFromInt(method.PricePerKgMinor).
		Mul(decimal.NewFromFloat(weightKg)).
		Round(0).
		IntPart()

	var tariff int64
	if subtotalMinor > CustomsThresholdMinor {
		tariff = decimal.NewFromInt(subtotalMinor).
			Mul(CustomsTariffRate).
			Round(0).
			IntPart()
	}

	// AIR/GROUND/SEA solo difieren en los días del registro externo:
	// acá no hay ramas por método, solo se usa max con fallback a min.
	days := method.EstimatedDaysMax
	if days == 0 {
		days = method.EstimatedDaysMin
	}

	return EstimateResult{
		ShippingCostMinor:     shipping,
		CustomsTariffMinor:    tariff,
		EstimatedDeliveryDate: now.AddDate(0, 0, days),
	}, nil
}
