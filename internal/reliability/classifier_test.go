package reliability

import "testing"

func TestClassifyHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want ErrorKind
	}{
		{401, KindAuth},
		{403, KindAuth},
		{429, KindQuota},
		{402, KindQuota},
		{408, KindTimeout},
		{504, KindTimeout},
		{500, KindUpstream},
		{503, KindUpstream},
		{400, KindUpstream},
	}
	for _, tc := range cases {
		got := ClassifyHTTPStatus(tc.code)
		if got != tc.want {
			t.Fatalf("ClassifyHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestIsClientFault(t *testing.T) {
	if !IsClientFault(KindAuth) || !IsClientFault(KindQuota) {
		t.Fatalf("auth and quota should be client faults")
	}
	if IsClientFault(KindTimeout) || IsClientFault(KindUpstream) || IsClientFault(KindMalformed) {
		t.Fatalf("timeout, upstream and malformed should not be client faults")
	}
}
