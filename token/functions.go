package token

import "strings"

// FunctionID is the built-in function index used by BIFF tFunc/tFuncVar
// records
type FunctionID uint16

// AddIn is the id of an add-in or user-defined function; the function name
// travels with the call instead
const AddIn FunctionID = 255

// FuncDef describes a built-in function: its name and accepted argument
// counts
type FuncDef struct {
	Name    string
	MinArgs int
	MaxArgs int
}

// MaxArgs is the variadic argument limit of the extended file format
const MaxArgs = 255

var funcDefs = map[FunctionID]FuncDef{
	0:   {"COUNT", 0, MaxArgs},
	1:   {"IF", 2, 3},
	2:   {"ISNA", 1, 1},
	3:   {"ISERROR", 1, 1},
	4:   {"SUM", 0, MaxArgs},
	5:   {"AVERAGE", 1, MaxArgs},
	6:   {"MIN", 0, MaxArgs},
	7:   {"MAX", 0, MaxArgs},
	8:   {"ROW", 0, 1},
	9:   {"COLUMN", 0, 1},
	10:  {"NA", 0, 0},
	12:  {"STDEV", 1, MaxArgs},
	15:  {"SIN", 1, 1},
	16:  {"COS", 1, 1},
	17:  {"TAN", 1, 1},
	19:  {"PI", 0, 0},
	20:  {"SQRT", 1, 1},
	21:  {"EXP", 1, 1},
	22:  {"LN", 1, 1},
	23:  {"LOG10", 1, 1},
	24:  {"ABS", 1, 1},
	25:  {"INT", 1, 1},
	26:  {"SIGN", 1, 1},
	27:  {"ROUND", 2, 2},
	28:  {"LOOKUP", 2, 3},
	29:  {"INDEX", 2, 4},
	30:  {"REPT", 2, 2},
	31:  {"MID", 3, 3},
	32:  {"LEN", 1, 1},
	33:  {"VALUE", 1, 1},
	34:  {"TRUE", 0, 0},
	35:  {"FALSE", 0, 0},
	36:  {"AND", 1, MaxArgs},
	37:  {"OR", 1, MaxArgs},
	38:  {"NOT", 1, 1},
	39:  {"MOD", 2, 2},
	40:  {"DCOUNT", 3, 3},
	41:  {"DSUM", 3, 3},
	42:  {"DAVERAGE", 3, 3},
	43:  {"DMIN", 3, 3},
	44:  {"DMAX", 3, 3},
	45:  {"DSTDEV", 3, 3},
	46:  {"VAR", 1, MaxArgs},
	47:  {"DVAR", 3, 3},
	63:  {"RAND", 0, 0},
	64:  {"MATCH", 2, 3},
	65:  {"DATE", 3, 3},
	67:  {"DAY", 1, 1},
	68:  {"MONTH", 1, 1},
	69:  {"YEAR", 1, 1},
	74:  {"NOW", 0, 0},
	75:  {"AREAS", 1, 1},
	76:  {"ROWS", 1, 1},
	77:  {"COLUMNS", 1, 1},
	78:  {"OFFSET", 3, 5},
	86:  {"TYPE", 1, 1},
	100: {"CHOOSE", 2, MaxArgs},
	101: {"HLOOKUP", 3, 4},
	102: {"VLOOKUP", 3, 4},
	105: {"ISREF", 1, 1},
	109: {"LOG", 1, 2},
	112: {"LOWER", 1, 1},
	113: {"UPPER", 1, 1},
	115: {"LEFT", 1, 2},
	116: {"RIGHT", 1, 2},
	117: {"EXACT", 2, 2},
	118: {"TRIM", 1, 1},
	120: {"SUBSTITUTE", 3, 4},
	124: {"FIND", 2, 3},
	125: {"CELL", 1, 2},
	126: {"ISERR", 1, 1},
	127: {"ISTEXT", 1, 1},
	128: {"ISNUMBER", 1, 1},
	129: {"ISBLANK", 1, 1},
	130: {"T", 1, 1},
	131: {"N", 1, 1},
	148: {"INDIRECT", 1, 2},
	169: {"COUNTA", 0, MaxArgs},
	183: {"PRODUCT", 0, MaxArgs},
	184: {"FACT", 1, 1},
	189: {"DPRODUCT", 3, 3},
	190: {"ISNONTEXT", 1, 1},
	193: {"STDEVP", 1, MaxArgs},
	194: {"VARP", 1, MaxArgs},
	195: {"DSTDEVP", 3, 3},
	196: {"DVARP", 3, 3},
	197: {"TRUNC", 1, 2},
	198: {"ISLOGICAL", 1, 1},
	199: {"DCOUNTA", 3, 3},
	212: {"ROUNDUP", 2, 2},
	213: {"ROUNDDOWN", 2, 2},
	219: {"ADDRESS", 2, 5},
	221: {"TODAY", 0, 0},
	227: {"MEDIAN", 1, MaxArgs},
	228: {"SUMPRODUCT", 1, MaxArgs},
	235: {"DGET", 3, 3},
	261: {"ERROR.TYPE", 1, 1},
	276: {"COMBIN", 2, 2},
	279: {"EVEN", 1, 1},
	285: {"FLOOR", 2, 2},
	288: {"CEILING", 2, 2},
	298: {"ODD", 1, 1},
	325: {"LARGE", 2, 2},
	326: {"SMALL", 2, 2},
	330: {"MODE", 1, MaxArgs},
	336: {"CONCATENATE", 1, MaxArgs},
	337: {"POWER", 2, 2},
	342: {"RADIANS", 1, 1},
	343: {"DEGREES", 1, 1},
	345: {"SUMIF", 2, 3},
	346: {"COUNTIF", 2, 2},
	347: {"COUNTBLANK", 1, 1},
	361: {"AVERAGEA", 1, MaxArgs},
	362: {"MAXA", 1, MaxArgs},
	363: {"MINA", 1, MaxArgs},
	480: {"IFERROR", 2, 2},
}

var funcIDs = func() map[string]FunctionID {
	m := make(map[string]FunctionID, len(funcDefs))
	for id, def := range funcDefs {
		m[def.Name] = id
	}
	return m
}()

// LookupFunction finds a built-in function by its canonical (English)
// name, ignoring case
func LookupFunction(name string) (FunctionID, bool) {
	id, ok := funcIDs[strings.ToUpper(name)]
	return id, ok
}

// Def returns the definition of a built-in function
func (id FunctionID) Def() (FuncDef, bool) {
	def, ok := funcDefs[id]
	return def, ok
}

// Name returns the canonical name of the function, or an empty string
// for an unknown id
func (id FunctionID) Name() string {
	return funcDefs[id].Name
}

// Functions returns every built-in function id
func Functions() []FunctionID {
	ids := make([]FunctionID, 0, len(funcDefs))
	for id := range funcDefs {
		ids = append(ids, id)
	}
	return ids
}

// NewFunctionCall builds a call token for a named function. unknown names
// become add-in calls.
func NewFunctionCall(name string, argc int) FunctionCall {
	if id, ok := LookupFunction(name); ok {
		return FunctionCall{ID: id, Argc: argc}
	}
	return FunctionCall{ID: AddIn, Argc: argc, Name: strings.ToUpper(name)}
}

// FuncName returns the name the call should be rendered with
func (f FunctionCall) FuncName() string {
	if f.ID == AddIn || f.Name != "" {
		return f.Name
	}
	return f.ID.Name()
}
