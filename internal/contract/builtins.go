package contract

// Built-in token interfaces, assembled from the OpenZeppelin extension they
// come from. Selectors for the functions the client calls:
//
//	name()              → 0x06fdde03
//	decimals()          → 0x313ce567
//	totalSupply()       → 0x18160ddd
//	balanceOf(address)  → 0x70a08231
//	allowance(a,a)      → 0xdd62ed3e
//	transfer(a,u256)    → 0xa9059cbb
//	approve(a,u256)     → 0x095ea7b3
//	mint(a,u256)        → 0x40c10f19
//	burn(u256)          → 0x42966c68
//	pause()             → 0x8456cb59
//	unpause()           → 0x3f4ba83a
//	paused()            → 0x5c975abb
//	owner()             → 0x8da5cb5b
func init() {
	RegisterBuiltin(BuiltinKind{
		ID:          "erc20",
		Name:        "ERC-20 Standard Token",
		Description: "Standard ERC-20 interface (EIP-20). Transfer and approve only.",
		ABI:         concat(erc20Read, erc20Write, erc20Events),
	})
	RegisterBuiltin(BuiltinKind{
		ID:          "w3token",
		Name:        "Mintable + Burnable ERC-20",
		Description: "ERC-20 with owner-only mint and holder burn.",
		ABI:         concat(erc20Read, erc20Write, burnable, ownable, mintable, erc20Events, ownableEvents),
	})
	RegisterBuiltin(BuiltinKind{
		ID:          "pausable",
		Name:        "Mintable + Burnable + Pausable ERC-20",
		Description: "ERC-20 with owner-only mint, pause and unpause, and holder burn. Default.",
		ABI:         concat(erc20Read, erc20Write, burnable, ownable, mintable, pausable, erc20Events, ownableEvents, pausableEvents),
	})
}

// DefaultBuiltin is the interface the client binds to when none is configured.
const DefaultBuiltin = "pausable"

func view(name string, inputs []ABIParam, out string) ABIEntry {
	return ABIEntry{
		Name: name, Type: "function",
		Inputs: inputs, Outputs: []ABIParam{{Name: "", Type: out}},
		StateMutability: "view",
	}
}

func write(name string, inputs []ABIParam, outputs []ABIParam) ABIEntry {
	return ABIEntry{
		Name: name, Type: "function",
		Inputs: inputs, Outputs: outputs,
		StateMutability: "nonpayable",
	}
}

func concat(groups ...[]ABIEntry) []ABIEntry {
	var out []ABIEntry
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var (
	addrParam = func(name string) ABIParam { return ABIParam{Name: name, Type: "address"} }
	u256Param = func(name string) ABIParam { return ABIParam{Name: name, Type: "uint256"} }
	okRet     = []ABIParam{{Name: "", Type: "bool"}}
)

// ── ERC-20 ───────────────────────────────────────────────────────────────────

var erc20Read = []ABIEntry{
	view("name", nil, "string"),
	view("symbol", nil, "string"),
	view("decimals", nil, "uint8"),
	view("totalSupply", nil, "uint256"),
	view("balanceOf", []ABIParam{addrParam("account")}, "uint256"),
	view("allowance", []ABIParam{addrParam("owner"), addrParam("spender")}, "uint256"),
}

var erc20Write = []ABIEntry{
	write("transfer", []ABIParam{addrParam("to"), u256Param("value")}, okRet),
	write("approve", []ABIParam{addrParam("spender"), u256Param("value")}, okRet),
	write("transferFrom", []ABIParam{addrParam("from"), addrParam("to"), u256Param("value")}, okRet),
}

var erc20Events = []ABIEntry{
	{
		Name: "Transfer", Type: "event",
		Inputs: []ABIParam{
			{Name: "from", Type: "address", Indexed: true},
			{Name: "to", Type: "address", Indexed: true},
			{Name: "value", Type: "uint256"},
		},
	},
	{
		Name: "Approval", Type: "event",
		Inputs: []ABIParam{
			{Name: "owner", Type: "address", Indexed: true},
			{Name: "spender", Type: "address", Indexed: true},
			{Name: "value", Type: "uint256"},
		},
	},
}

// ── Extensions ───────────────────────────────────────────────────────────────

var burnable = []ABIEntry{
	write("burn", []ABIParam{u256Param("value")}, nil),
	write("burnFrom", []ABIParam{addrParam("account"), u256Param("value")}, nil),
}

var mintable = []ABIEntry{
	write("mint", []ABIParam{addrParam("to"), u256Param("amount")}, nil),
}

var ownable = []ABIEntry{
	view("owner", nil, "address"),
	write("transferOwnership", []ABIParam{addrParam("newOwner")}, nil),
	write("renounceOwnership", nil, nil),
}

var ownableEvents = []ABIEntry{
	{
		Name: "OwnershipTransferred", Type: "event",
		Inputs: []ABIParam{
			{Name: "previousOwner", Type: "address", Indexed: true},
			{Name: "newOwner", Type: "address", Indexed: true},
		},
	},
}

var pausable = []ABIEntry{
	view("paused", nil, "bool"),
	write("pause", nil, nil),
	write("unpause", nil, nil),
}

var pausableEvents = []ABIEntry{
	{Name: "Paused", Type: "event", Inputs: []ABIParam{addrParam("account")}},
	{Name: "Unpaused", Type: "event", Inputs: []ABIParam{addrParam("account")}},
}
