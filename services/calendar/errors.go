package calendar

import "meetwise/utils"

// Failure constructors for the gateway boundary. Kinds drive both the HTTP
// mapping and the retry policy: rate limits retry with jitter, everything
// else propagates.
func errNotConnected(expertID string) error {
	return utils.E(utils.KindPreconditionFailed, "calendar not connected for expert %s", expertID)
}

func errTokenExpired(expertID string) error {
	return utils.E(utils.KindUnauthorized, "calendar token expired for expert %s", expertID)
}

func errProviderUnavailable(err error) error {
	return utils.WrapE(utils.KindUpstreamUnavailable, err, "calendar provider unavailable")
}

func errRateLimited(err error) error {
	return utils.WrapE(utils.KindUpstreamRateLimited, err, "calendar provider rate limited")
}
