package protect

// DefaultPatterns defines glob patterns for protected areas.
var DefaultPatterns = []string{
	"**/auth/**",
	"**/security/**",
	"**/migrations/**",
	"**/secrets/**",
	"**/credentials/**",
	"**/certs/**",
	"**/keys/**",
	"**/.ssh/**",
	"**/terraform/**",
	"**/k8s/**",
}

// DefaultKeywords defines substrings that indicate protected files.
var DefaultKeywords = []string{
	"password",
	"secret",
	"credential",
	"private_key",
	"oauth",
	"encrypt",
}

// DefaultFileTypes defines file extensions that are protected.
var DefaultFileTypes = []string{
	".pem",
	".key",
	".env",
	".p12",
	".pfx",
	".crt",
	".cer",
}
