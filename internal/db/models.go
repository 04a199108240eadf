package db

import (
	"time"
)

// Organization maps jobs.organizations.
type Organization struct {
	OrgID          int64     `gorm:"column:org_id;primaryKey;autoIncrement"`
	OrgUUID        string    `gorm:"column:org_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Name           string    `gorm:"column:name;type:text;not null"`
	NormalizedName string    `gorm:"column:normalized_name;type:text;not null;unique"`
	Domain         *string   `gorm:"column:domain;type:text"`
	Sector         *string   `gorm:"column:sector;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt      time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Organization) TableName() string { return "jobs.organizations" }

// Location maps jobs.locations.
type Location struct {
	LocationID   int64     `gorm:"column:location_id;primaryKey;autoIncrement"`
	LocationUUID string    `gorm:"column:location_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	City         *string   `gorm:"column:city;type:text"`
	County       *string   `gorm:"column:county;type:text"`
	Country      string    `gorm:"column:country;type:text;not null;default:''"`
	NormalizedKey string   `gorm:"column:normalized_key;type:text;not null;unique"`
	IsRemote     bool      `gorm:"column:is_remote;type:boolean;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Location) TableName() string { return "jobs.locations" }

// Posting maps jobs.postings. One active row per canonical URL hash is
// enforced by a partial unique index created in post_automigrate.sql.
type Posting struct {
	PostingID        int64      `gorm:"column:posting_id;primaryKey;autoIncrement"`
	PostingUUID      string     `gorm:"column:posting_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	OrgID            *int64     `gorm:"column:org_id;type:bigint"`
	LocationID       *int64     `gorm:"column:location_id;type:bigint"`
	Source           string     `gorm:"column:source;type:text;not null"`
	CanonicalURL     string     `gorm:"column:canonical_url;type:text;not null"`
	CanonicalURLHash []byte     `gorm:"column:canonical_url_hash;type:bytea;not null"`
	Title            string     `gorm:"column:title;type:text;not null"`
	NormalizedTitle  string     `gorm:"column:normalized_title;type:text;not null"`
	Description      string     `gorm:"column:description;type:text;not null;default:''"`
	Requirements     string     `gorm:"column:requirements;type:text;not null;default:''"`
	Seniority        *string    `gorm:"column:seniority;type:text"`
	RoleFamily       *string    `gorm:"column:role_family;type:text"`
	Sector           *string    `gorm:"column:sector;type:text"`
	SalaryMin        *float64   `gorm:"column:salary_min;type:double precision"`
	SalaryMax        *float64   `gorm:"column:salary_max;type:double precision"`
	SalaryCurrency   *string    `gorm:"column:salary_currency;type:text"`
	QualityScore     float64    `gorm:"column:quality_score;type:double precision;not null;default:0"`
	Language         string     `gorm:"column:language;type:text;not null;default:und"`
	IsActive         bool       `gorm:"column:is_active;type:boolean;not null;default:true"`
	RepostCount      int        `gorm:"column:repost_count;type:integer;not null;default:0"`
	DuplicateOf      *int64     `gorm:"column:duplicate_of;type:bigint"`
	FirstSeenAt      time.Time  `gorm:"column:first_seen_at;type:timestamptz;not null"`
	LastSeenAt       time.Time  `gorm:"column:last_seen_at;type:timestamptz;not null"`
	CreatedAt        time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Posting) TableName() string { return "jobs.postings" }

// PostingEmbedding maps jobs.posting_embeddings. Multiple rows per
// posting across model versions are allowed; the most recent wins.
type PostingEmbedding struct {
	PostingEmbeddingID   int64     `gorm:"column:posting_embedding_id;primaryKey;autoIncrement"`
	PostingEmbeddingUUID string    `gorm:"column:posting_embedding_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	PostingID            int64     `gorm:"column:posting_id;type:bigint;not null"`
	ModelName            string    `gorm:"column:model_name;type:text;not null"`
	ModelVersion         string    `gorm:"column:model_version;type:text;not null"`
	Embedding            string    `gorm:"column:embedding;type:vector(1024);not null"`
	EmbeddedAt           time.Time `gorm:"column:embedded_at;type:timestamptz;not null;default:now()"`
}

func (PostingEmbedding) TableName() string { return "jobs.posting_embeddings" }

// DedupEvent maps jobs.dedup_events, the audit log of resolver decisions.
type DedupEvent struct {
	DedupEventID    int64     `gorm:"column:dedup_event_id;primaryKey;autoIncrement"`
	DedupEventUUID  string    `gorm:"column:dedup_event_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	PostingID       int64     `gorm:"column:posting_id;type:bigint;not null"`
	Decision        string    `gorm:"column:decision;type:text;not null"`
	ChosenPostingID *int64    `gorm:"column:chosen_posting_id;type:bigint"`
	MatchType       *string   `gorm:"column:match_type;type:text"`
	Confidence      *float64  `gorm:"column:confidence;type:double precision"`
	TitleSimilarity *float64  `gorm:"column:title_similarity;type:double precision"`
	ContentCosine   *float64  `gorm:"column:content_cosine;type:double precision"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (DedupEvent) TableName() string { return "jobs.dedup_events" }

// InteractionEvent maps jobs.interaction_events, the implicit-feedback
// log consumed by the ranking trainer.
type InteractionEvent struct {
	EventID    int64     `gorm:"column:event_id;primaryKey;autoIncrement"`
	EventUUID  string    `gorm:"column:event_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	QueryText  string    `gorm:"column:query_text;type:text;not null"`
	PostingID  int64     `gorm:"column:posting_id;type:bigint;not null"`
	EventType  string    `gorm:"column:event_type;type:text;not null"`
	OccurredAt time.Time `gorm:"column:occurred_at;type:timestamptz;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (InteractionEvent) TableName() string { return "jobs.interaction_events" }

func autoMigrateModels() []any {
	return []any{
		&Organization{},
		&Location{},
		&Posting{},
		&PostingEmbedding{},
		&DedupEvent{},
		&InteractionEvent{},
	}
}
