// Package client turns declarative request options into resolved HTTP
// requests and dispatches them through an interceptor chain and a Transport.
//
// A request is assembled from three layers: the owning model (base URL and
// path template), the operation defaults (method, key params) and the
// call-site Options. Later layers win. The resolved Request is passed to the
// Transport; the Response, or the failure, is passed back through the Chain.
package client
