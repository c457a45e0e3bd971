package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/vaultledger/vaultledger/internal/securepayload"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueLedger carries inter-service ledger packets.
	QueueLedger = "ledger"
	// TaskLedgerRelay transports the encrypted packets of one transfer.
	TaskLedgerRelay = "ledger:relay"
	// TaskLedgerIntegrity runs the double-entry consistency check.
	TaskLedgerIntegrity = "ledger:integrity"
)

// DefaultIntegrityLimit bounds how many violations one integrity run reports.
const DefaultIntegrityLimit = 500

// RelayPayload is the debit and credit packet of a single transfer. Only
// ciphertext is ever serialized into the queue.
type RelayPayload struct {
	Packets []securepayload.Packet `json:"packets"`
}

// IntegrityPayload configures an integrity run.
type IntegrityPayload struct {
	Limit int `json:"limit"`
}

// NewRelayTask constructs a relay task.
func NewRelayTask(packets []securepayload.Packet) (*asynq.Task, error) {
	if len(packets) == 0 {
		return nil, fmt.Errorf("jobs: relay task without packets")
	}
	data, err := json.Marshal(RelayPayload{Packets: packets})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerRelay, data), nil
}

// NewIntegrityTask constructs an integrity task.
func NewIntegrityTask(limit int) (*asynq.Task, error) {
	data, err := json.Marshal(IntegrityPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}
