package riskengine

import "strconv"

// MatrixPosition devolve a célula da matriz 4x4 de risco, ex. "C2".
// Linhas (A-D): impacto em segurança dos alimentos, de baixo a crítico.
// Colunas (1-4): impacto regulatório, de baixo a crítico.
// Valores desconhecidos caem na primeira linha/coluna, como em Score.
func MatrixPosition(foodSafety, regulatory ImpactLevel) string {
	row := rune('A' + foodSafety.Score() - 1)
	return string(row) + strconv.Itoa(regulatory.Score())
}
