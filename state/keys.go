package state

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Storage keys, mirroring the teacher's core/state/manager.go prefix
// variables: the two singleton entities are keyed by a Keccak256 digest,
// and each per-address or per-id family by a fixed string prefix.
var (
	globalHistoryKeyBytes = ethcrypto.Keccak256([]byte("nftstaking/globalHistory"))
	stakerHistoryPrefix   = []byte("nftstaking/stakerHistory/")
	tokenInfoPrefix       = []byte("nftstaking/tokenInfo/")
	nextClaimPrefix       = []byte("nftstaking/nextClaim/")
	rewardsSchedulePrefix = []byte("nftstaking/rewardsSchedule/")
	scalarsKeyBytes       = ethcrypto.Keccak256([]byte("nftstaking/scalars"))
)

func stakerHistoryKey(addr common.Address) []byte {
	return append(append([]byte{}, stakerHistoryPrefix...), addr.Bytes()...)
}

func tokenInfoKey(id *big.Int) []byte {
	idBytes := id.Bytes()
	key := make([]byte, 0, len(tokenInfoPrefix)+len(idBytes))
	key = append(key, tokenInfoPrefix...)
	key = append(key, idBytes...)
	return key
}

func nextClaimKey(addr common.Address) []byte {
	return append(append([]byte{}, nextClaimPrefix...), addr.Bytes()...)
}

func rewardsScheduleKey(period uint64) []byte {
	key := make([]byte, len(rewardsSchedulePrefix)+8)
	copy(key, rewardsSchedulePrefix)
	binary.BigEndian.PutUint64(key[len(rewardsSchedulePrefix):], period)
	return key
}
