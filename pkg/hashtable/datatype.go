package hashtable

// DataType records the declared type of a scope variable, independent of
// the structural Kind its Rval currently carries (a variable keeps its
// DataType across the demotion iteration performs when substituting a
// concrete scalar for a list during expansion).
type DataType int

const (
	DataNone DataType = iota
	DataString
	DataStringList
	DataInt
	DataIntList
	DataReal
	DataRealList
	DataFnCall
	DataFnCallList
	DataContainer
)

func (d DataType) String() string {
	switch d {
	case DataString:
		return "string"
	case DataStringList:
		return "slist"
	case DataInt:
		return "int"
	case DataIntList:
		return "ilist"
	case DataReal:
		return "real"
	case DataRealList:
		return "rlist"
	case DataFnCall:
		return "function"
	case DataFnCallList:
		return "function-list"
	case DataContainer:
		return "container"
	default:
		return "none"
	}
}

// IsList reports whether d is one of the *_LIST data types.
func (d DataType) IsList() bool {
	switch d {
	case DataStringList, DataIntList, DataRealList, DataFnCallList:
		return true
	default:
		return false
	}
}

// Demote returns the scalar-equivalent DataType for a *_LIST type. It is
// used by the iteration engine when it overwrites a list-typed variable
// with the scalar value at a wheel's current cursor: the variable's
// DataType collapses from e.g. DataStringList to DataString so that
// later expansion treats it as an ordinary scalar. Demoting a DataType
// that is not already a list type is a no-op.
func (d DataType) Demote() DataType {
	switch d {
	case DataStringList:
		return DataString
	case DataIntList:
		return DataInt
	case DataRealList:
		return DataReal
	case DataFnCallList:
		return DataFnCall
	default:
		return d
	}
}
