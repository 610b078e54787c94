package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/springdom/solace/internal/normalizer"
)

// Label keys that change between receipts of the same logical alert and
// must not affect its identity.
var volatileLabelKeys = map[string]struct{}{
	"timestamp":    {},
	"value":        {},
	"description":  {},
	"summary":      {},
	"generatorURL": {},
}

// Fingerprint derives a stable 16-hex-character identity for an alert from
// its source, name, service, host, and non-volatile labels. The canonical
// form is compact JSON with sorted keys, so equal identities hash equally
// regardless of label order.
func Fingerprint(alert normalizer.NormalizedAlert) string {
	identity := map[string]any{
		"source":  alert.Source,
		"name":    alert.Name,
		"service": alert.Service,
		"host":    alert.Host,
	}

	labels := map[string]string{}
	for k, v := range alert.Labels {
		if _, volatile := volatileLabelKeys[k]; !volatile {
			labels[k] = v
		}
	}
	if len(labels) > 0 {
		identity["labels"] = labels
	}

	// encoding/json sorts map keys, giving the canonical form directly.
	canonical, _ := json.Marshal(identity)
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:16]
}
