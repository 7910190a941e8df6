package marketplace

import (
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// ContractStateGetter is the interface required for contract state resolution
// using a known contract ID.
type ContractStateGetter interface {
	GetContractStateByID(int32) (*state.Contract, error)
}

// InferHash resolves marketplace contract hash by its ID. It's useful for
// networks with deterministic deployment order where the ID is known in
// advance and the hash depends on the deployer.
func InferHash(sg ContractStateGetter, id int32) (util.Uint160, error) {
	c, err := sg.GetContractStateByID(id)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("get state of contract #%d: %w", id, err)
	}

	return c.Hash, nil
}
