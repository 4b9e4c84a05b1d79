package gemini

// Supported generateContent models.
const (
	ModelFlash     = "gemini-2.5-flash"
	ModelFlashLite = "gemini-2.5-flash-lite"
	ModelPro       = "gemini-2.5-pro"
)

// MaxOutputTokens is the output ceiling requested on every call. Both flash
// and pro support 65k.
const MaxOutputTokens = 65536

// FallbackModel returns the alternate model used when the primary is
// overloaded or rate-limited: pro falls back to flash, everything else falls
// forward to pro.
func FallbackModel(model string) string {
	if model == ModelPro {
		return ModelFlash
	}
	return ModelPro
}
