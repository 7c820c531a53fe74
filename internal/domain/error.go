package domain

// ErrorBody é o conteúdo de uma resposta de erro.
type ErrorBody struct {
	Code      string `json:"code" example:"UNAUTHORIZED"`
	Message   string `json:"message" example:"Token inválido ou expirado."`
	RequestID string `json:"request_id" example:"5f0c6c1e-8d1b-4c39-9b8e-1f7d2a1f0c11"`
}

// ErrorResponse é a estrutura padronizada para respostas de erro na API.
// @Description Estrutura padronizada para respostas de erro na API.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
