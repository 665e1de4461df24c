package presenter

const (
	pointsDefaultLimit  = 100
	pointsMaxLimit      = 500
	bridgesDefaultLimit = 50
	bridgesMaxLimit     = 200

	throttleLimit   = 50
	throttleBacklog = 100
)

type HealthResult struct {
	OK bool `json:"ok"`
}
