package jobs

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const jobColumns = "id, source, source_path, status, tone, output_name, output_path, censored_count, progress_stage, progress_percent, progress_message, error_kind, error_message, created_at, updated_at, started_at, finished_at, last_heartbeat"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job             Job
		status          string
		sourcePath      sql.NullString
		tone            sql.NullInt64
		outputName      sql.NullString
		outputPath      sql.NullString
		progressStage   sql.NullString
		progressMessage sql.NullString
		errorKind       sql.NullString
		errorMessage    sql.NullString
		createdRaw      string
		updatedRaw      string
		startedRaw      sql.NullString
		finishedRaw     sql.NullString
		heartbeatRaw    sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.Source,
		&sourcePath,
		&status,
		&tone,
		&outputName,
		&outputPath,
		&job.CensoredCount,
		&progressStage,
		&job.ProgressPercent,
		&progressMessage,
		&errorKind,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	job.Status = Status(status)
	job.SourcePath = sourcePath.String
	if tone.Valid {
		v := tone.Int64 != 0
		job.Tone = &v
	}
	job.OutputName = outputName.String
	job.OutputPath = outputPath.String
	job.ProgressStage = progressStage.String
	job.ProgressMessage = progressMessage.String
	job.ErrorKind = errorKind.String
	job.ErrorMessage = errorMessage.String
	if t, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = t
	}
	job.StartedAt = parseNullableTime(startedRaw)
	job.FinishedAt = parseNullableTime(finishedRaw)
	job.LastHeartbeat = parseNullableTime(heartbeatRaw)
	return &job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableBool(value *bool) any {
	if value == nil {
		return nil
	}
	if *value {
		return 1
	}
	return 0
}

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = string(status)
	}
	return args
}
