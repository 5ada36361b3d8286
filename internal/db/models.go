package db

import (
	"github.com/jackc/pgx/v5/pgtype"
	"promoloft.app/studio/pkg/utils/passwords"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	ID        pgtype.UUID
	Email     string
	UserName  string
	Password  passwords.Password
	Role      UserRole
	Enabled   bool
	CreatedAt pgtype.Timestamptz
}

type Creator struct {
	ID          pgtype.UUID
	Platform    string
	Handle      string
	DisplayName string
	AvatarURL   pgtype.Text
	CreatedAt   pgtype.Timestamptz
}

type Video struct {
	ID              pgtype.UUID
	Platform        string
	SourceID        string
	SourceURL       string
	Slug            string
	Title           string
	Description     string
	DurationSeconds float64
	ThumbnailURL    pgtype.Text
	VideoURL        pgtype.Text
	Transcript      pgtype.Text
	CreatorID       pgtype.UUID
	PublishedAt     pgtype.Timestamptz
	CreatedAt       pgtype.Timestamptz
}

// LeaderboardEntry references exactly one ingested video: either a
// short-form clip (VideoID) or a long-form video (LongVideoID). The XOR is
// enforced by a table check constraint.
type LeaderboardEntry struct {
	ID               pgtype.UUID
	VideoID          pgtype.UUID
	LongVideoID      pgtype.UUID
	Likes            pgtype.Int8
	Views            pgtype.Int8
	Comments         pgtype.Int8
	Shares           pgtype.Int8
	MetricsUpdatedAt pgtype.Timestamptz
	IsActive         bool
	DisplayOrder     int32
}

// LeaderboardSource is a leaderboard entry joined with the source video
// fields the metrics refresher needs to fetch fresh counts.
type LeaderboardSource struct {
	Entry          LeaderboardEntry
	SourcePlatform pgtype.Text
	SourceURL      pgtype.Text
}
