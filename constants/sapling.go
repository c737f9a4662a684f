package constants

const (
	// Bech32 human readable parts of Sapling keys and addresses.
	HRPExtendedFullViewingKey        = "zxviews"
	HRPExtendedFullViewingKeyTestnet = "zxviewtestsapling"
	HRPFullViewingKey                = "zviews"
	HRPFullViewingKeyTestnet         = "zviewtestsapling"
	HRPPaymentAddress                = "zs"
	HRPPaymentAddressTestnet         = "ztestsapling"
)

// ViewingKeyHRPs lists the human readable parts accepted for viewing keys.
var ViewingKeyHRPs = []string{
	HRPExtendedFullViewingKey,
	HRPExtendedFullViewingKeyTestnet,
	HRPFullViewingKey,
	HRPFullViewingKeyTestnet,
}

func PaymentAddressHRP(testnet bool) string {
	if testnet {
		return HRPPaymentAddressTestnet
	}
	return HRPPaymentAddress
}
