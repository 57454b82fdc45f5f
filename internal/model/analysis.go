package model

// AnswerDTO 是问卷中的单条回答。
type AnswerDTO struct {
	QuestionID int    `json:"questionId"`
	Answer     string `json:"answer"`
}

// ShortResultDTO 是 short 接口返回的结果体。
type ShortResultDTO struct {
	RunID      string `json:"runId"`
	Animal     string `json:"animal"`
	Element    string `json:"element"`
	GenderForm string `json:"genderForm"`
	Text       string `json:"text"`
}

// ShortResponseDTO 对应 {type:"short", result_id, result}。
type ShortResponseDTO struct {
	Type     string         `json:"type"`
	ResultID string         `json:"result_id"`
	Result   ShortResultDTO `json:"result"`
}

// FullResponseDTO 对应 {type:"full", result_id, result}。
type FullResponseDTO struct {
	Type     string     `json:"type"`
	ResultID string     `json:"result_id"`
	Result   FullResult `json:"result"`
}

// NewShortResponse 由持久化的 ShortResult 构造响应。
func NewShortResponse(sr *ShortResult) ShortResponseDTO {
	id := sr.RunID.String()
	return ShortResponseDTO{
		Type:     "short",
		ResultID: id,
		Result: ShortResultDTO{
			RunID:      id,
			Animal:     sr.Animal,
			Element:    sr.Element,
			GenderForm: sr.GenderForm,
			Text:       sr.Text,
		},
	}
}

// NewFullResponse 构造 full 接口的响应。
func NewFullResponse(resultID string, fr FullResult) FullResponseDTO {
	return FullResponseDTO{Type: "full", ResultID: resultID, Result: fr}
}
