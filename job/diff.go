package job

import (
	"slices"

	"github.com/holiman/uint256"
)

// Diff is a single observable change of the job field caused by one event.
type Diff struct {
	// Field name, nested fields are dot-separated (e.g. roles.worker).
	Field string
	// OldValue is nil when the field was not defined before the event.
	OldValue any
	NewValue any
}

// Names of the job fields used in Diff.
const (
	FieldID                 = "id"
	FieldTitle              = "title"
	FieldContentHash        = "contentHash"
	FieldMultipleApplicants = "multipleApplicants"
	FieldTags               = "tags"
	FieldToken              = "token"
	FieldAmount             = "amount"
	FieldMaxTime            = "maxTime"
	FieldDeliveryMethod     = "deliveryMethod"
	FieldCreator            = "roles.creator"
	FieldWorker             = "roles.worker"
	FieldArbitrator         = "roles.arbitrator"
	FieldWhitelistWorkers   = "whitelistWorkers"
	FieldAllowedWorkers     = "allowedWorkers"
	FieldState              = "state"
	FieldEscrowID           = "escrowId"
	FieldCollateralOwed     = "collateralOwed"
	FieldDisputed           = "disputed"
	FieldRating             = "rating"
	FieldResultHash         = "resultHash"
	FieldTimestamp          = "timestamp"
)

type field struct {
	name  string
	value func(*Job) any
	equal func(a, b *Job) bool
}

func u256Equal(get func(*Job) *uint256.Int) func(a, b *Job) bool {
	return func(a, b *Job) bool { return get(a).Eq(get(b)) }
}

// fields lists all canonical job fields in the order they appear in diffs.
// Values are copied so that diffs never alias snapshots.
var fields = []field{
	{FieldID, func(j *Job) any { return j.ID }, u256Equal(func(j *Job) *uint256.Int { return &j.ID })},
	{FieldTitle, func(j *Job) any { return j.Title }, func(a, b *Job) bool { return a.Title == b.Title }},
	{FieldContentHash, func(j *Job) any { return j.ContentHash }, func(a, b *Job) bool { return a.ContentHash == b.ContentHash }},
	{FieldMultipleApplicants, func(j *Job) any { return j.MultipleApplicants }, func(a, b *Job) bool { return a.MultipleApplicants == b.MultipleApplicants }},
	{FieldTags, func(j *Job) any { return slices.Clone(j.Tags) }, func(a, b *Job) bool { return slices.Equal(a.Tags, b.Tags) }},
	{FieldToken, func(j *Job) any { return j.Token }, func(a, b *Job) bool { return a.Token == b.Token }},
	{FieldAmount, func(j *Job) any { return j.Amount }, u256Equal(func(j *Job) *uint256.Int { return &j.Amount })},
	{FieldMaxTime, func(j *Job) any { return j.MaxTime }, func(a, b *Job) bool { return a.MaxTime == b.MaxTime }},
	{FieldDeliveryMethod, func(j *Job) any { return j.DeliveryMethod }, func(a, b *Job) bool { return a.DeliveryMethod == b.DeliveryMethod }},
	{FieldCreator, func(j *Job) any { return j.Roles.Creator }, func(a, b *Job) bool { return a.Roles.Creator == b.Roles.Creator }},
	{FieldWorker, func(j *Job) any { return j.Roles.Worker }, func(a, b *Job) bool { return a.Roles.Worker == b.Roles.Worker }},
	{FieldArbitrator, func(j *Job) any { return j.Roles.Arbitrator }, func(a, b *Job) bool { return a.Roles.Arbitrator == b.Roles.Arbitrator }},
	{FieldWhitelistWorkers, func(j *Job) any { return j.WhitelistWorkers }, func(a, b *Job) bool { return a.WhitelistWorkers == b.WhitelistWorkers }},
	{FieldAllowedWorkers, func(j *Job) any { return slices.Clone(j.AllowedWorkers) }, func(a, b *Job) bool { return slices.Equal(a.AllowedWorkers, b.AllowedWorkers) }},
	{FieldState, func(j *Job) any { return j.State }, func(a, b *Job) bool { return a.State == b.State }},
	{FieldEscrowID, func(j *Job) any { return j.EscrowID }, u256Equal(func(j *Job) *uint256.Int { return &j.EscrowID })},
	{FieldCollateralOwed, func(j *Job) any { return j.CollateralOwed }, u256Equal(func(j *Job) *uint256.Int { return &j.CollateralOwed })},
	{FieldDisputed, func(j *Job) any { return j.Disputed }, func(a, b *Job) bool { return a.Disputed == b.Disputed }},
	{FieldRating, func(j *Job) any { return j.Rating }, func(a, b *Job) bool { return a.Rating == b.Rating }},
	{FieldResultHash, func(j *Job) any { return j.ResultHash }, func(a, b *Job) bool { return a.ResultHash == b.ResultHash }},
	{FieldTimestamp, func(j *Job) any { return j.Timestamp }, func(a, b *Job) bool { return a.Timestamp == b.Timestamp }},
}

// Compare returns diffs between two consecutive snapshots. If prev is nil,
// every field of next is listed with nil OldValue.
func Compare(prev, next *Job) []Diff {
	var res []Diff
	for i := range fields {
		if prev == nil {
			res = append(res, Diff{Field: fields[i].name, NewValue: fields[i].value(next)})
			continue
		}
		if !fields[i].equal(prev, next) {
			res = append(res, Diff{
				Field:    fields[i].name,
				OldValue: fields[i].value(prev),
				NewValue: fields[i].value(next),
			})
		}
	}
	return res
}
