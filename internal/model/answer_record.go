package model

import (
	"time"
)

// 渠道
const (
	ChannelOnline = 1
	ChannelPaper  = 2
)

// swagger:model AnswerRecord
// AnswerRecord 一份问卷实例对应一行。PartyID 在内存中为明文，落库前由仓储层加密，不出现在接口响应中。
type AnswerRecord struct {
	PcqID                string    `gorm:"column:pcq_id;primaryKey;type:varchar(36)" json:"pcqId"`
	DcnNumber            *string   `gorm:"column:dcn_number;size:100;uniqueIndex:uk_answers_dcn_number" json:"dcnNumber,omitempty"`
	CaseID               *string   `gorm:"column:case_id;size:255;index:idx_answers_case_completed,priority:1;index:idx_answers_case_updated,priority:1" json:"caseId,omitempty"`
	PartyID              string    `gorm:"column:party_id;type:text" json:"-"`
	Channel              int       `gorm:"column:channel" json:"channel"`
	ServiceID            string    `gorm:"column:service_id;size:50" json:"serviceId"`
	Actor                string    `gorm:"column:actor;size:50" json:"actor"`
	VersionNumber        int       `gorm:"column:version_number" json:"versionNumber"`
	OptOut               bool      `gorm:"column:opt_out;not null;default:false" json:"optOut"`
	CompletedDate        time.Time `gorm:"column:completed_date;not null;index:idx_answers_case_completed,priority:2" json:"completedDate"`
	LastUpdatedTimestamp time.Time `gorm:"column:last_updated_timestamp;not null;index:idx_answers_case_updated,priority:2" json:"lastUpdatedTimestamp"`

	Answers
}

func (AnswerRecord) TableName() string {
	return "protected_characteristics"
}

// HasCase 是否已被 consolidation 关联案件
func (r *AnswerRecord) HasCase() bool {
	return r.CaseID != nil && *r.CaseID != ""
}

// swagger:model Answers
// Answers 问卷答案，所有字段均可为空（未作答）
type Answers struct {
	Dob                       *string `gorm:"column:dob;size:10" json:"dob,omitempty"`
	DobProvided               *int    `gorm:"column:dob_provided" json:"dob_provided,omitempty"`
	LanguageMain              *int    `gorm:"column:language_main" json:"language_main,omitempty"`
	LanguageOther             *string `gorm:"column:language_other;size:250" json:"language_other,omitempty"`
	EnglishLanguageLevel      *int    `gorm:"column:english_language_level" json:"english_language_level,omitempty"`
	Sex                       *int    `gorm:"column:sex" json:"sex,omitempty"`
	GenderDifferent           *int    `gorm:"column:gender_different" json:"gender_different,omitempty"`
	GenderOther               *string `gorm:"column:gender_other;size:250" json:"gender_other,omitempty"`
	Sexuality                 *int    `gorm:"column:sexuality" json:"sexuality,omitempty"`
	SexualityOther            *string `gorm:"column:sexuality_other;size:250" json:"sexuality_other,omitempty"`
	Marriage                  *int    `gorm:"column:marriage" json:"marriage,omitempty"`
	Ethnicity                 *int    `gorm:"column:ethnicity" json:"ethnicity,omitempty"`
	EthnicityOther            *string `gorm:"column:ethnicity_other;size:250" json:"ethnicity_other,omitempty"`
	Religion                  *int    `gorm:"column:religion" json:"religion,omitempty"`
	ReligionOther             *string `gorm:"column:religion_other;size:250" json:"religion_other,omitempty"`
	DisabilityConditions      *int    `gorm:"column:disability_conditions" json:"disability_conditions,omitempty"`
	DisabilityImpact          *int    `gorm:"column:disability_impact" json:"disability_impact,omitempty"`
	DisabilityVision          *int    `gorm:"column:disability_vision" json:"disability_vision,omitempty"`
	DisabilityHearing         *int    `gorm:"column:disability_hearing" json:"disability_hearing,omitempty"`
	DisabilityMobility        *int    `gorm:"column:disability_mobility" json:"disability_mobility,omitempty"`
	DisabilityDexterity       *int    `gorm:"column:disability_dexterity" json:"disability_dexterity,omitempty"`
	DisabilityLearning        *int    `gorm:"column:disability_learning" json:"disability_learning,omitempty"`
	DisabilityMemory          *int    `gorm:"column:disability_memory" json:"disability_memory,omitempty"`
	DisabilityMentalHealth    *int    `gorm:"column:disability_mental_health" json:"disability_mental_health,omitempty"`
	DisabilityStamina         *int    `gorm:"column:disability_stamina" json:"disability_stamina,omitempty"`
	DisabilitySocial          *int    `gorm:"column:disability_social" json:"disability_social,omitempty"`
	DisabilityOther           *int    `gorm:"column:disability_other" json:"disability_other,omitempty"`
	DisabilityConditionsOther *string `gorm:"column:disability_conditions_other;size:250" json:"disability_conditions_other,omitempty"`
	DisabilityNone            *int    `gorm:"column:disability_none" json:"disability_none,omitempty"`
	Pregnancy                 *int    `gorm:"column:pregnancy" json:"pregnancy,omitempty"`
}
