package ensemble

// FirstWorkerID is the worker id that takes the primary role on each
// node. Exactly one worker per node carries it.
const FirstWorkerID = "0"

// workerPrefix is the common prefix of all worker directory names
// inside an output root.
const workerPrefix = "fuzzer_"

// WorkerIdentity identifies one fuzzing worker within the ensemble. It
// is immutable once constructed; the primary flag is a pure function of
// the worker id. The primary is the single process per node allowed to
// perform the archive/ingest work against the shared pool, which bounds
// contention and prevents duplicate publishes without any runtime lock.
type WorkerIdentity struct {
	NodeID   string
	WorkerID string
	Name     string
	Primary  bool
}

// NewWorkerIdentity derives a worker's identity from its node and
// worker ids. No I/O is performed.
func NewWorkerIdentity(nodeID, workerID string) WorkerIdentity {
	return WorkerIdentity{
		NodeID:   nodeID,
		WorkerID: workerID,
		Name:     workerPrefix + nodeID + "_" + workerID,
		Primary:  workerID == FirstWorkerID,
	}
}

// NodePrefix returns the name prefix shared by every worker directory
// belonging to this worker's node. The archiver uses it to select which
// local worker directories to bundle.
func (w WorkerIdentity) NodePrefix() string {
	return workerPrefix + w.NodeID + "_"
}
