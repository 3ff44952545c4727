package inspections

import (
	"hash"

	"github.com/minio/highwayhash"
)

// fingerprintKey keys every result fingerprint, changing it invalidates recorded fingerprints
var fingerprintKey = []byte("mlinspect-annotation-fingerprint")

// newFingerprint returns the 64 bit highwayhash a Result streams its DAG and outputs into.
// Fingerprints let callers assert that re-running a pipeline reproduces the same operators
// and inspection outputs without keeping the previous Result around.
func newFingerprint() (hash.Hash64, error) {
	return highwayhash.New64(fingerprintKey)
}
