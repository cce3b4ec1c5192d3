package domain

// Edge calcula el value de una cuota frente a una probabilidad.
//
// Fórmula: edge = p × cuota − 1
//
// Devuelve 0 si la probabilidad o la cuota no son positivas (dato inválido).
func Edge(probability, price float64) float64 {
	if probability <= 0 || price <= 0 {
		return 0
	}
	return probability*price - 1
}

// ReturnPct devuelve el retorno derivado en porcentaje: edge / (cuota − 1) × 100.
// Devuelve 0 si la cuota es ≤ 1.
func ReturnPct(edge, price float64) float64 {
	if price <= 1 {
		return 0
	}
	return edge / (price - 1) * 100
}

// ImpliedProbability devuelve 1/cuota, o 0 si la cuota no es positiva.
func ImpliedProbability(price float64) float64 {
	if price <= 0 {
		return 0
	}
	return 1 / price
}
