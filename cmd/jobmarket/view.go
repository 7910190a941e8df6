package main

import (
	"encoding/hex"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/jobmarket/event"
	"github.com/nspcc-dev/jobmarket/job"
	"github.com/nspcc-dev/jobmarket/replay"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.uber.org/multierr"
)

// JSON views of the replay results. Amounts and identifiers are decimal
// strings, accounts are Neo addresses, digests are BE hex.

type replayView struct {
	Job        *jobView    `json:"job"`
	Applied    uint64      `json:"applied"`
	Events     []eventView `json:"events"`
	Unresolved []string    `json:"unresolved,omitempty"`
}

type rolesView struct {
	Creator    string `json:"creator"`
	Worker     string `json:"worker,omitempty"`
	Arbitrator string `json:"arbitrator,omitempty"`
}

type jobView struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	ContentHash        string    `json:"contentHash"`
	Content            string    `json:"content,omitempty"`
	MultipleApplicants bool      `json:"multipleApplicants"`
	Tags               []string  `json:"tags"`
	Token              string    `json:"token"`
	Amount             string    `json:"amount"`
	MaxTime            uint32    `json:"maxTime"`
	DeliveryMethod     string    `json:"deliveryMethod"`
	Roles              rolesView `json:"roles"`
	WhitelistWorkers   bool      `json:"whitelistWorkers"`
	AllowedWorkers     []string  `json:"allowedWorkers"`
	State              string    `json:"state"`
	EscrowID           string    `json:"escrowId"`
	CollateralOwed     string    `json:"collateralOwed"`
	Disputed           bool      `json:"disputed"`
	Rating             uint8     `json:"rating"`
	ResultHash         string    `json:"resultHash,omitempty"`
	Result             string    `json:"result,omitempty"`
	Timestamp          uint64    `json:"timestamp"`
}

type diffView struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

type eventView struct {
	ID        uint64        `json:"id"`
	Type      string        `json:"type"`
	Address   string        `json:"address"`
	Timestamp uint64        `json:"timestamp"`
	Details   any           `json:"details,omitempty"`
	Diffs     []diffView    `json:"diffs,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func newReplayView(res replay.Result) replayView {
	v := replayView{
		Job:     newJobView(res.Job),
		Applied: res.Applied,
		Events:  make([]eventView, len(res.Events)),
	}
	for i := range res.Events {
		v.Events[i] = newEventView(&res.Events[i])
	}
	for _, err := range multierr.Errors(res.Unresolved) {
		v.Unresolved = append(v.Unresolved, err.Error())
	}
	return v
}

func newEventView(ev *job.EventWithDiffs) eventView {
	v := eventView{
		ID:        ev.ID,
		Type:      ev.Type.String(),
		Address:   address.Uint160ToString(ev.Address),
		Timestamp: ev.Timestamp,
		Details:   detailsView(ev.Details),
	}
	if ev.DecodeErr != nil {
		v.Error = ev.DecodeErr.Error()
	}
	for _, d := range ev.Diffs {
		v.Diffs = append(v.Diffs, diffView{
			Field: d.Field,
			Old:   valueView(d.OldValue),
			New:   valueView(d.NewValue),
		})
	}
	return v
}

func newJobView(j *job.Job) *jobView {
	if j == nil {
		return nil
	}
	v := &jobView{
		ID:                 j.ID.Dec(),
		Title:              j.Title,
		ContentHash:        j.ContentHash.StringBE(),
		Content:            j.Content,
		MultipleApplicants: j.MultipleApplicants,
		Tags:               j.Tags,
		Token:              accountView(j.Token),
		Amount:             j.Amount.Dec(),
		MaxTime:            j.MaxTime,
		DeliveryMethod:     j.DeliveryMethod,
		Roles: rolesView{
			Creator:    accountView(j.Roles.Creator),
			Worker:     accountView(j.Roles.Worker),
			Arbitrator: accountView(j.Roles.Arbitrator),
		},
		WhitelistWorkers: j.WhitelistWorkers,
		AllowedWorkers:   valueView(j.AllowedWorkers).([]string),
		State:            j.State.String(),
		EscrowID:         j.EscrowID.Dec(),
		CollateralOwed:   j.CollateralOwed.Dec(),
		Disputed:         j.Disputed,
		Rating:           j.Rating,
		Result:           j.Result,
		Timestamp:        j.Timestamp,
	}
	if !j.ResultHash.Equals(util.Uint256{}) {
		v.ResultHash = j.ResultHash.StringBE()
	}
	return v
}

// accountView returns Neo address of the account, empty for zero one.
func accountView(a util.Uint160) string {
	if a.Equals(util.Uint160{}) {
		return ""
	}
	return address.Uint160ToString(a)
}

func valueView(v any) any {
	switch v := v.(type) {
	case uint256.Int:
		return v.Dec()
	case util.Uint160:
		return accountView(v)
	case util.Uint256:
		return v.StringBE()
	case []util.Uint160:
		res := make([]string, len(v))
		for i := range v {
			res[i] = address.Uint160ToString(v[i])
		}
		return res
	case job.State:
		return v.String()
	default:
		return v
	}
}

type createdView struct {
	Title              string   `json:"title"`
	ContentHash        string   `json:"contentHash"`
	Content            string   `json:"content,omitempty"`
	MultipleApplicants bool     `json:"multipleApplicants"`
	Tags               []string `json:"tags"`
	Token              string   `json:"token"`
	Amount             string   `json:"amount"`
	MaxTime            uint32   `json:"maxTime"`
	DeliveryMethod     string   `json:"deliveryMethod"`
	Arbitrator         string   `json:"arbitrator,omitempty"`
	WhitelistWorkers   bool     `json:"whitelistWorkers"`
	AllowedWorkers     []string `json:"allowedWorkers"`
}

type updatedView struct {
	Title            string   `json:"title"`
	ContentHash      string   `json:"contentHash"`
	Content          string   `json:"content,omitempty"`
	Tags             []string `json:"tags"`
	Amount           string   `json:"amount"`
	MaxTime          uint32   `json:"maxTime"`
	Arbitrator       string   `json:"arbitrator,omitempty"`
	WhitelistWorkers bool     `json:"whitelistWorkers"`
}

type signedView struct {
	Revision  uint16 `json:"revision"`
	Signature string `json:"signature"`
}

type ratedView struct {
	Rating uint8  `json:"rating"`
	Review string `json:"review"`
}

type disputedView struct {
	SessionKey          string `json:"sessionKey"`
	Content             string `json:"content"`
	DecryptedSessionKey string `json:"decryptedSessionKey,omitempty"`
	DecryptedContent    string `json:"decryptedContent,omitempty"`
}

type arbitratedView struct {
	CreatorShare  uint16 `json:"creatorShare"`
	CreatorAmount string `json:"creatorAmount"`
	WorkerShare   uint16 `json:"workerShare"`
	WorkerAmount  string `json:"workerAmount"`
	ReasonHash    string `json:"reasonHash"`
	Reason        string `json:"reason,omitempty"`
	WorkerAddress string `json:"workerAddress"`
}

type messageView struct {
	Type        string `json:"type"`
	ContentHash string `json:"contentHash"`
	Content     string `json:"content,omitempty"`
}

// detailsView renders decoded payload the same way as the job: digests in
// BE hex, accounts as Neo addresses, raw bytes in hex.
func detailsView(d event.Details) any {
	switch d := d.(type) {
	case *event.CreatedDetails:
		return createdView{
			Title:              d.Title,
			ContentHash:        d.ContentHash.StringBE(),
			Content:            d.Content,
			MultipleApplicants: d.MultipleApplicants,
			Tags:               d.Tags,
			Token:              accountView(d.Token),
			Amount:             d.Amount.Dec(),
			MaxTime:            d.MaxTime,
			DeliveryMethod:     d.DeliveryMethod,
			Arbitrator:         accountView(d.Arbitrator),
			WhitelistWorkers:   d.WhitelistWorkers,
			AllowedWorkers:     valueView(d.AllowedWorkers).([]string),
		}
	case *event.UpdatedDetails:
		return updatedView{
			Title:            d.Title,
			ContentHash:      d.ContentHash.StringBE(),
			Content:          d.Content,
			Tags:             d.Tags,
			Amount:           d.Amount.Dec(),
			MaxTime:          d.MaxTime,
			Arbitrator:       accountView(d.Arbitrator),
			WhitelistWorkers: d.WhitelistWorkers,
		}
	case *event.SignedDetails:
		return signedView{Revision: d.Revision, Signature: hex.EncodeToString(d.Signature)}
	case *event.RatedDetails:
		return ratedView{Rating: d.Rating, Review: d.Review}
	case *event.DisputedDetails:
		return disputedView{
			SessionKey:          hex.EncodeToString(d.SessionKey),
			Content:             hex.EncodeToString(d.Content),
			DecryptedSessionKey: d.DecryptedSessionKey,
			DecryptedContent:    d.DecryptedContent,
		}
	case *event.ArbitratedDetails:
		return arbitratedView{
			CreatorShare:  d.CreatorShare,
			CreatorAmount: d.CreatorAmount.Dec(),
			WorkerShare:   d.WorkerShare,
			WorkerAmount:  d.WorkerAmount.Dec(),
			ReasonHash:    d.ReasonHash.StringBE(),
			Reason:        d.Reason,
			WorkerAddress: address.Uint160ToString(d.WorkerAddress),
		}
	case *event.MessageDetails:
		return messageView{
			Type:        d.Type.String(),
			ContentHash: d.ContentHash.StringBE(),
			Content:     d.Content,
		}
	default:
		return nil
	}
}
