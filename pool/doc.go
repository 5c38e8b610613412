// Package pool
// Author: momentics <momentics@gmail.com>
//
// Fixed-size byte buffer pooling for receive loops. Each connection's
// receive loop holds exactly one buffer of the node's maximum packet size
// for its whole lifetime, so the pool only has to absorb connection churn.
package pool
