package reliability

// ErrorKind is the coarse class of an upstream provider failure.
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindQuota     ErrorKind = "quota"
	KindTimeout   ErrorKind = "timeout"
	KindMalformed ErrorKind = "malformed"
	KindUpstream  ErrorKind = "upstream"
)

// ClassifyHTTPStatus maps a provider HTTP status code to an ErrorKind.
func ClassifyHTTPStatus(code int) ErrorKind {
	switch code {
	case 401, 403:
		return KindAuth
	case 402, 429:
		return KindQuota
	case 408, 504:
		return KindTimeout
	default:
		return KindUpstream
	}
}

// IsClientFault reports whether the kind points at our own credentials or
// account rather than a transient provider problem.
func IsClientFault(kind ErrorKind) bool {
	return kind == KindAuth || kind == KindQuota
}
