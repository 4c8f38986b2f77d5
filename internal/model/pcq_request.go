package model

import "time"

// swagger:model PcqAnswerRequest
// PcqAnswerRequest submitAnswers 的请求体，结构由 configs/schema/pcq_answers.cue 约束
type PcqAnswerRequest struct {
	PcqID         string   `json:"pcqId"`
	DcnNumber     *string  `json:"dcnNumber,omitempty"`
	CaseID        *string  `json:"caseId,omitempty"`
	PartyID       string   `json:"partyId,omitempty"`
	Channel       int      `json:"channel"`
	ServiceID     string   `json:"serviceId"`
	Actor         string   `json:"actor"`
	VersionNo     int      `json:"versionNo"`
	CompletedDate string   `json:"completedDate"`
	OptOut        bool     `json:"optOut,omitempty"`
	PcqAnswers    *Answers `json:"pcqAnswers,omitempty"`

	// 校验通过后解析出的 completedDate（UTC）
	CompletedAt time.Time `json:"-"`
}

// ToRecord 首次提交时构造新记录，LastUpdatedTimestamp 与 CompletedDate 相同
func (r *PcqAnswerRequest) ToRecord() *AnswerRecord {
	rec := &AnswerRecord{
		PcqID:                r.PcqID,
		DcnNumber:            r.DcnNumber,
		CaseID:               r.CaseID,
		PartyID:              r.PartyID,
		Channel:              r.Channel,
		ServiceID:            r.ServiceID,
		Actor:                r.Actor,
		VersionNumber:        r.VersionNo,
		CompletedDate:        r.CompletedAt,
		LastUpdatedTimestamp: r.CompletedAt,
	}
	if r.PcqAnswers != nil {
		rec.Answers = *r.PcqAnswers
	}
	return rec
}
