package ledger

// auditContractABI describes the minimal anchoring contract: storeHash emits
// HashStored with the digest as the indexed topic.
const auditContractABI = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "hash", "type": "bytes32"},
      {"indexed": false, "name": "entityType", "type": "string"},
      {"indexed": false, "name": "entityId", "type": "string"},
      {"indexed": false, "name": "timestamp", "type": "uint256"}
    ],
    "name": "HashStored",
    "type": "event"
  },
  {
    "inputs": [
      {"name": "hash", "type": "bytes32"},
      {"name": "entityType", "type": "string"},
      {"name": "entityId", "type": "string"}
    ],
    "name": "storeHash",
    "outputs": [{"name": "", "type": "bool"}],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const (
	storeHashMethod = "storeHash"
	hashStoredEvent = "HashStored"
)

// networkNames maps well-known chain IDs to the names ethers-style tooling reports.
var networkNames = map[uint64]string{ //nolint:gochecknoglobals // lookup table
	1:        "mainnet",
	137:      "matic",
	80001:    "maticmum",
	80002:    "amoy",
	11155111: "sepolia",
	31337:    "hardhat",
}
